// Package storagetest holds the behaviour every storage backend must share.
// Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
	"github.com/NikGor/archie-backend/internal/storage"
)

// Factory opens a fresh, empty backend. It is called once per sub-test.
type Factory func(t *testing.T) storage.Backend

// Run executes the conformance suite against the backend built by newBackend
func Run(t *testing.T, newBackend Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, e *storage.Engine)
	}{
		{"CreateAndGetConversation", testCreateAndGetConversation},
		{"CreateConversationDefaults", testCreateConversationDefaults},
		{"DuplicateCreateLeavesRowUntouched", testDuplicateCreate},
		{"GetUnknownConversation", testGetUnknownConversation},
		{"ListConversationsNewestFirst", testListConversations},
		{"ListConversationIDs", testListConversationIDs},
		{"SaveMessageCreatesParent", testSaveMessageCreatesParent},
		{"SaveMessageBumpsUpdatedAt", testSaveMessageBumpsUpdatedAt},
		{"SaveMessageUpsert", testSaveMessageUpsert},
		{"ConcurrentSaveMessageCreatesParentOnce", testConcurrentSaveMessage},
		{"MessageRoundTrip", testMessageRoundTrip},
		{"MessageWithoutOptionalFields", testMessageWithoutOptionalFields},
		{"HistoryOrdering", testHistoryOrdering},
		{"HistoryTieBreak", testHistoryTieBreak},
		{"HistoryForAgent", testHistoryForAgent},
		{"GetConversationWithMessages", testGetConversationWithMessages},
		{"SaveConversation", testSaveConversation},
		{"SaveConversationUpsert", testSaveConversationUpsert},
		{"SaveConversationRejectsInvalidMessage", testSaveConversationRejectsInvalidMessage},
		{"SaveConversationRollsBackOnBackendFailure", testSaveConversationRollsBack},
		{"DeleteConversation", testDeleteConversation},
		{"DeleteKeepsOtherConversations", testDeleteKeepsOtherConversations},
		{"RejectsInvalidMessage", testRejectsInvalidMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newBackend(t)
			e := storage.NewEngine(backend)
			t.Cleanup(func() { _ = e.Close() })
			tc.fn(t, e)
		})
	}
}

// base reference time, microsecond precision like stored values
var base = time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)

func at(offset time.Duration) time.Time {
	return base.Add(offset)
}

func newMessage(t *testing.T, convID, msgID string, role entity.Role, text string, createdAt time.Time) *entity.Message {
	t.Helper()
	msg, err := entity.NewMessage(entity.MessageParams{
		MessageID:      msgID,
		ConversationID: convID,
		Role:           role,
		Text:           text,
		CreatedAt:      createdAt,
	})
	require.NoError(t, err)
	return msg
}

func assertSameTime(t *testing.T, expected, actual time.Time, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, expected.Equal(actual), append([]any{fmt.Sprintf("expected %s, got %s", expected, actual)}, msgAndArgs...)...)
}

func messageIDs(messages []*entity.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.MessageID)
	}
	return ids
}

func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func testCreateAndGetConversation(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	created, err := e.CreateConversation(ctx, "conv-1", "Trip planning")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", created.ConversationID)
	assert.Equal(t, "Trip planning", created.Title)
	assertSameTime(t, created.CreatedAt, created.UpdatedAt)

	got, err := e.GetConversation(ctx, "conv-1", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Trip planning", got.Title)
	assert.Zero(t, got.TotalInputTokens)
	assert.Zero(t, got.TotalOutputTokens)
	assert.Zero(t, got.TotalTokens)
	assert.True(t, got.TotalCost.IsZero())
	assertSameTime(t, created.CreatedAt, got.CreatedAt)
	assertSameTime(t, created.UpdatedAt, got.UpdatedAt)
	assert.NotNil(t, got.Messages)
	assert.Empty(t, got.Messages)
}

func testCreateConversationDefaults(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	created, err := e.CreateConversation(ctx, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ConversationID)
	assert.Equal(t, entity.DefaultConversationTitle, created.Title)

	got, err := e.GetConversation(ctx, created.ConversationID, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.DefaultConversationTitle, got.Title)
}

func testDuplicateCreate(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	first, err := e.CreateConversation(ctx, "conv-dup", "original")
	require.NoError(t, err)

	_, err = e.CreateConversation(ctx, "conv-dup", "replacement")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyExists), "got %v", err)

	got, err := e.GetConversation(ctx, "conv-dup", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "original", got.Title)
	assertSameTime(t, first.CreatedAt, got.CreatedAt)
	assertSameTime(t, first.UpdatedAt, got.UpdatedAt)
}

func testGetUnknownConversation(t *testing.T, e *storage.Engine) {
	got, err := e.GetConversation(context.Background(), "missing", true)
	require.NoError(t, err)
	assert.Nil(t, got)

	history, err := e.GetConversationHistory(context.Background(), "missing", false)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

// seedConversations stores n conversations created one minute apart, oldest first
func seedConversations(t *testing.T, e *storage.Engine, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("conv-%d", i)
		conv := &entity.Conversation{
			ConversationID: id,
			Title:          fmt.Sprintf("title %d", i),
			CreatedAt:      at(time.Duration(i) * time.Minute),
			UpdatedAt:      at(time.Duration(i) * time.Minute),
		}
		require.NoError(t, e.SaveConversation(context.Background(), conv))
		ids = append(ids, id)
	}
	return ids
}

func testListConversations(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	seedConversations(t, e, 5)

	two, err := e.ListConversations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "conv-4", two[0].ConversationID)
	assert.Equal(t, "conv-3", two[1].ConversationID)
	for _, c := range two {
		assert.NotNil(t, c.Messages)
		assert.Empty(t, c.Messages)
	}

	all, err := e.ListConversations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}
}

func testListConversationIDs(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	ids, err := e.ListConversationIDs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	seedConversations(t, e, 3)
	ids, err = e.ListConversationIDs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"conv-2", "conv-1", "conv-0"}, ids)

	ids, err = e.ListConversationIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"conv-2"}, ids)
}

func testSaveMessageCreatesParent(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	msg := newMessage(t, "implicit", "m1", entity.RoleUser, "hello", at(0))
	require.NoError(t, e.SaveMessage(ctx, msg))

	conv, err := e.GetConversation(ctx, "implicit", false)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, entity.DefaultConversationTitle, conv.Title)
	assert.Zero(t, conv.TotalTokens)
	assert.True(t, conv.TotalCost.IsZero())

	history, err := e.GetConversationHistory(ctx, "implicit", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, messageIDs(history))
}

func testSaveMessageBumpsUpdatedAt(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	conv := &entity.Conversation{
		ConversationID: "bump",
		Title:          "old",
		CreatedAt:      at(-time.Hour),
		UpdatedAt:      at(-time.Hour),
	}
	require.NoError(t, e.SaveConversation(ctx, conv))

	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "bump", "m1", entity.RoleUser, "hi", at(0))))

	got, err := e.GetConversation(ctx, "bump", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "old", got.Title)
	assertSameTime(t, at(-time.Hour), got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(at(-time.Hour)), "updated_at was not bumped: %s", got.UpdatedAt)
}

func testSaveMessageUpsert(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "c", "m1", entity.RoleUser, "draft", at(0))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "c", "m2", entity.RoleAssistant, "reply", at(time.Second))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "c", "m1", entity.RoleUser, "final", at(0))))

	history, err := e.GetConversationHistory(ctx, "c", false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m1", history[0].MessageID)
	assert.Equal(t, "final", history[0].Text)
	assert.Equal(t, "m2", history[1].MessageID)
}

func testMessageRoundTrip(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	msg, err := entity.NewMessage(entity.MessageParams{
		MessageID:         "m-full",
		ConversationID:    "c-full",
		Role:              entity.RoleAssistant,
		Text:              "**answer**",
		TextFormat:        entity.TextFormatMarkdown,
		Metadata:          json.RawMessage(`{"source":"search","scores":[1,2.5],"nested":{"ok":true}}`),
		CreatedAt:         time.Date(2024, 3, 10, 8, 30, 15, 987654321, time.FixedZone("MSK", 3*3600)),
		PreviousMessageID: "m-prev",
		Model:             "gpt-4o",
		LLMTrace: &entity.UsageTrace{
			Model:                 "gpt-4o",
			InputTokens:           120,
			InputCachedTokens:     20,
			OutputTokens:          80,
			OutputReasoningTokens: 5,
			TotalTokens:           200,
			TotalCost:             decimal.RequireFromString("0.0012345"),
		},
	})
	require.NoError(t, err)
	require.NoError(t, e.SaveMessage(ctx, msg))

	history, err := e.GetConversationHistory(ctx, "c-full", false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	got := history[0]

	assert.Equal(t, "m-full", got.MessageID)
	assert.Equal(t, "c-full", got.ConversationID)
	assert.Equal(t, entity.RoleAssistant, got.Role)
	assert.Equal(t, "**answer**", got.Text)
	assert.Equal(t, entity.TextFormatMarkdown, got.TextFormat)
	assert.JSONEq(t, string(msg.Metadata), string(got.Metadata))
	assertSameTime(t, time.Date(2024, 3, 10, 5, 30, 15, 987654000, time.UTC), got.CreatedAt)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.Equal(t, "m-prev", got.PreviousMessageID)
	assert.Equal(t, "gpt-4o", got.Model)

	require.NotNil(t, got.LLMTrace)
	assert.Equal(t, "gpt-4o", got.LLMTrace.Model)
	assert.Equal(t, int64(120), got.LLMTrace.InputTokens)
	assert.Equal(t, int64(20), got.LLMTrace.InputCachedTokens)
	assert.Equal(t, int64(80), got.LLMTrace.OutputTokens)
	assert.Equal(t, int64(5), got.LLMTrace.OutputReasoningTokens)
	assert.Equal(t, int64(200), got.LLMTrace.TotalTokens)
	assert.Equal(t, "0.001235", got.LLMTrace.TotalCost.StringFixed(entity.CostPrecision))
}

func testMessageWithoutOptionalFields(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	msg := newMessage(t, "c-min", "m-min", entity.RoleSystem, "", at(0))
	msg.Metadata = json.RawMessage(`null`)
	require.NoError(t, e.SaveMessage(ctx, msg))

	history, err := e.GetConversationHistory(ctx, "c-min", false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	got := history[0]
	assert.Equal(t, entity.RoleSystem, got.Role)
	assert.Equal(t, "", got.Text)
	assert.Equal(t, entity.TextFormatPlain, got.TextFormat)
	assert.False(t, got.HasMetadata())
	assert.Empty(t, got.PreviousMessageID)
	assert.Empty(t, got.Model)
	assert.Nil(t, got.LLMTrace)
}

func testHistoryOrdering(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	// saved out of chronological order on purpose
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "c", "m3", entity.RoleUser, "3", at(3*time.Second))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "c", "m1", entity.RoleUser, "1", at(time.Second))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "c", "m2", entity.RoleAssistant, "2", at(2*time.Second))))

	asc, err := e.GetConversationHistory(ctx, "c", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, messageIDs(asc))

	desc, err := e.GetConversationHistory(ctx, "c", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m2", "m1"}, messageIDs(desc))
}

func testHistoryTieBreak(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	for _, id := range []string{"m-b", "m-a", "m-c", "m-d"} {
		require.NoError(t, e.SaveMessage(ctx, newMessage(t, "tie", id, entity.RoleUser, id, at(0))))
	}
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "tie", "m-last", entity.RoleUser, "last", at(time.Second))))

	asc, err := e.GetConversationHistory(ctx, "tie", false)
	require.NoError(t, err)
	desc, err := e.GetConversationHistory(ctx, "tie", true)
	require.NoError(t, err)

	require.Len(t, asc, 5)
	assert.Equal(t, "m-last", asc[4].MessageID)
	assert.Equal(t, reversed(messageIDs(asc)), messageIDs(desc))

	again, err := e.GetConversationHistory(ctx, "tie", false)
	require.NoError(t, err)
	assert.Equal(t, messageIDs(asc), messageIDs(again))
}

func testHistoryForAgent(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "agent", "m2", entity.RoleAssistant, "hi there", at(time.Second))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "agent", "m1", entity.RoleUser, "hello", at(0))))

	history, err := e.GetConversationHistoryForAgent(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, []entity.AgentMessage{
		{Role: entity.RoleUser, Content: "hello"},
		{Role: entity.RoleAssistant, Content: "hi there"},
	}, history)

	empty, err := e.GetConversationHistoryForAgent(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testGetConversationWithMessages(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	_, err := e.CreateConversation(ctx, "with", "chat")
	require.NoError(t, err)
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "with", "m1", entity.RoleUser, "q", at(0))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "with", "m2", entity.RoleAssistant, "a", at(time.Second))))

	full, err := e.GetConversation(ctx, "with", true)
	require.NoError(t, err)
	require.NotNil(t, full)
	assert.Equal(t, []string{"m2", "m1"}, messageIDs(full.Messages))

	meta, err := e.GetConversation(ctx, "with", false)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Empty(t, meta.Messages)
}

func testSaveConversation(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	conv := &entity.Conversation{
		ConversationID:    "bulk",
		Title:             "Imported",
		CreatedAt:         at(0),
		UpdatedAt:         at(time.Minute),
		TotalInputTokens:  10,
		TotalOutputTokens: 20,
		TotalTokens:       99,
		TotalCost:         decimal.RequireFromString("1.5"),
		Messages: []*entity.Message{
			newMessage(t, "somewhere-else", "b1", entity.RoleUser, "one", at(time.Second)),
			newMessage(t, "", "b2", entity.RoleAssistant, "two", at(2*time.Second)),
		},
	}
	require.NoError(t, e.SaveConversation(ctx, conv))

	got, err := e.GetConversation(ctx, "bulk", true)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Imported", got.Title)
	assert.Equal(t, int64(10), got.TotalInputTokens)
	assert.Equal(t, int64(20), got.TotalOutputTokens)
	assert.Equal(t, int64(99), got.TotalTokens, "totals are stored as written")
	assert.Equal(t, "1.500000", got.TotalCost.StringFixed(entity.CostPrecision))
	assertSameTime(t, at(0), got.CreatedAt)
	assertSameTime(t, at(time.Minute), got.UpdatedAt)

	require.Len(t, got.Messages, 2)
	for _, m := range got.Messages {
		assert.Equal(t, "bulk", m.ConversationID)
	}

	other, err := e.GetConversationHistory(ctx, "somewhere-else", false)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testSaveConversationUpsert(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	conv := &entity.Conversation{
		ConversationID: "up",
		Title:          "first",
		CreatedAt:      at(0),
		UpdatedAt:      at(0),
		Messages:       []*entity.Message{newMessage(t, "up", "u1", entity.RoleUser, "v1", at(time.Second))},
	}
	require.NoError(t, e.SaveConversation(ctx, conv))

	conv.Title = "second"
	conv.TotalTokens = 7
	conv.Messages = []*entity.Message{
		newMessage(t, "up", "u1", entity.RoleUser, "v2", at(time.Second)),
		newMessage(t, "up", "u2", entity.RoleAssistant, "new", at(2*time.Second)),
	}
	require.NoError(t, e.SaveConversation(ctx, conv))

	got, err := e.GetConversation(ctx, "up", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, int64(7), got.TotalTokens)

	history, err := e.GetConversationHistory(ctx, "up", false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v2", history[0].Text)
	assert.Equal(t, "u2", history[1].MessageID)

	list, err := e.ListConversations(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testSaveConversationRejectsInvalidMessage(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	bad := newMessage(t, "atomic", "ok", entity.RoleUser, "x", at(0))
	bad.Role = "robot"
	conv := &entity.Conversation{
		ConversationID: "atomic",
		CreatedAt:      at(0),
		UpdatedAt:      at(0),
		Messages:       []*entity.Message{bad},
	}
	err := e.SaveConversation(ctx, conv)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter))

	got, err := e.GetConversation(ctx, "atomic", false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testConcurrentSaveMessage(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	const writers = 40

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < writers; i++ {
		msg := newMessage(t, "race", fmt.Sprintf("race-%02d", i), entity.RoleUser, "hi", at(time.Duration(i)*time.Millisecond))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.SaveMessage(ctx, msg); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	history, err := e.GetConversationHistory(ctx, "race", false)
	require.NoError(t, err)
	assert.Len(t, history, writers)

	ids, err := e.ListConversationIDs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"race"}, ids)
}

// the backend is called directly so the failure happens inside its transaction
func testSaveConversationRollsBack(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	good := newMessage(t, "atomic-tx", "first", entity.RoleUser, "written first", at(0))
	bad := newMessage(t, "atomic-tx", "second", entity.RoleUser, "x", at(time.Second))
	bad.Role = "robot"
	conv := &entity.Conversation{
		ConversationID: "atomic-tx",
		Title:          "Atomic",
		CreatedAt:      at(0),
		UpdatedAt:      at(0),
		TotalCost:      decimal.Zero,
		Messages:       []*entity.Message{good, bad},
	}
	require.Error(t, e.Backend().SaveConversation(ctx, conv))

	got, err := e.Backend().GetConversation(ctx, "atomic-tx")
	require.NoError(t, err)
	assert.Nil(t, got)
	messages, err := e.Backend().ListMessages(ctx, "atomic-tx", false)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func testDeleteConversation(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "gone", "g1", entity.RoleUser, "a", at(0))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "gone", "g2", entity.RoleAssistant, "b", at(time.Second))))

	require.NoError(t, e.DeleteConversation(ctx, "gone"))

	conv, err := e.GetConversation(ctx, "gone", false)
	require.NoError(t, err)
	assert.Nil(t, conv)

	history, err := e.GetConversationHistory(ctx, "gone", false)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, e.DeleteConversation(ctx, "gone"))
	require.NoError(t, e.DeleteConversation(ctx, "never-existed"))

	// the id can be reused afterwards
	_, err = e.CreateConversation(ctx, "gone", "again")
	require.NoError(t, err)
	history, err = e.GetConversationHistory(ctx, "gone", false)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func testDeleteKeepsOtherConversations(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "keep", "k1", entity.RoleUser, "a", at(0))))
	require.NoError(t, e.SaveMessage(ctx, newMessage(t, "drop", "d1", entity.RoleUser, "b", at(0))))

	require.NoError(t, e.DeleteConversation(ctx, "drop"))

	history, err := e.GetConversationHistory(ctx, "keep", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, messageIDs(history))

	ids, err := e.ListConversationIDs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids)
}

func testRejectsInvalidMessage(t *testing.T, e *storage.Engine) {
	ctx := context.Background()
	tests := []struct {
		name   string
		mutate func(m *entity.Message)
	}{
		{"role", func(m *entity.Message) { m.Role = "robot" }},
		{"format", func(m *entity.Message) { m.TextFormat = "rtf" }},
		{"metadata", func(m *entity.Message) { m.Metadata = json.RawMessage(`[1,2]`) }},
		{"message id", func(m *entity.Message) { m.MessageID = " " }},
		{"trace", func(m *entity.Message) { m.LLMTrace = &entity.UsageTrace{InputTokens: -1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := newMessage(t, "invalid", "bad-"+tt.name, entity.RoleUser, "x", at(0))
			tt.mutate(msg)
			err := e.SaveMessage(ctx, msg)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter), "got %v", err)
		})
	}

	conv, err := e.GetConversation(ctx, "invalid", false)
	require.NoError(t, err)
	assert.Nil(t, conv)
}
