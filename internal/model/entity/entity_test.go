package entity

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikGor/archie-backend/core/errors"
)

func TestGenerateID(t *testing.T) {
	pattern := regexp.MustCompile(`^message-\d{14}-[0-9a-f]{8}$`)

	id := GenerateMessageID()
	assert.Regexp(t, pattern, id)
	assert.Regexp(t, regexp.MustCompile(`^conversation-\d{14}-[0-9a-f]{8}$`), GenerateConversationID())

	ts, err := time.Parse(idTimestampLayout, id[len("message-"):len("message-")+14])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, 2*time.Second)

	assert.NotEqual(t, GenerateID("x"), GenerateID("x"))
}

func TestNewMessage_RoleAndFormat(t *testing.T) {
	roles := []Role{RoleUser, RoleAssistant, RoleSystem}
	formats := []TextFormat{TextFormatPlain, TextFormatMarkdown, TextFormatHTML, TextFormatVoice}

	for _, role := range roles {
		for _, format := range formats {
			t.Run(string(role)+"/"+string(format), func(t *testing.T) {
				m, err := NewMessage(MessageParams{ConversationID: "c1", Role: role, Text: "hi", TextFormat: format})
				require.NoError(t, err)
				assert.Equal(t, role, m.Role)
				assert.Equal(t, format, m.TextFormat)
			})
		}
	}

	invalid := []struct {
		name   string
		role   Role
		format TextFormat
	}{
		{name: "unknown role", role: "tool", format: TextFormatPlain},
		{name: "empty role", role: "", format: TextFormatPlain},
		{name: "uppercase role", role: "User", format: TextFormatPlain},
		{name: "unknown format", role: RoleUser, format: "rtf"},
		{name: "uppercase format", role: RoleUser, format: "HTML"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMessage(MessageParams{ConversationID: "c1", Role: tt.role, Text: "hi", TextFormat: tt.format})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter))
		})
	}
}

func TestNewMessage_Defaults(t *testing.T) {
	m, err := NewMessage(MessageParams{Role: RoleUser, Text: "hello"})
	require.NoError(t, err)

	assert.Regexp(t, `^message-`, m.MessageID)
	assert.Regexp(t, `^conversation-`, m.ConversationID)
	assert.Equal(t, TextFormatPlain, m.TextFormat)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.Equal(t, 0, m.CreatedAt.Nanosecond()%1000)
}

func TestNewMessage_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params MessageParams
	}{
		{name: "blank message id", params: MessageParams{MessageID: "  ", ConversationID: "c1", Role: RoleUser}},
		{name: "blank conversation id", params: MessageParams{ConversationID: "\t", Role: RoleUser}},
		{name: "metadata array", params: MessageParams{ConversationID: "c1", Role: RoleUser, Metadata: json.RawMessage(`[1,2]`)}},
		{name: "metadata broken", params: MessageParams{ConversationID: "c1", Role: RoleUser, Metadata: json.RawMessage(`{"a":`)}},
		{name: "negative tokens", params: MessageParams{ConversationID: "c1", Role: RoleUser, LLMTrace: &UsageTrace{InputTokens: -1}}},
		{name: "negative cost", params: MessageParams{ConversationID: "c1", Role: RoleUser, LLMTrace: &UsageTrace{TotalCost: decimal.NewFromFloat(-0.1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMessage(tt.params)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter), "got %v", err)
		})
	}
}

func TestMessage_Metadata(t *testing.T) {
	m, err := NewMessage(MessageParams{ConversationID: "c1", Role: RoleUser, Metadata: json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.Nil(t, m.Metadata)
	assert.False(t, m.HasMetadata())

	m.Metadata = json.RawMessage(`{}`)
	assert.True(t, m.HasMetadata())
	assert.False(t, m.HasNonEmptyMetadata())

	m.Metadata = json.RawMessage(`{"source":"telegram"}`)
	assert.True(t, m.HasNonEmptyMetadata())
}

func TestUsageTrace_Codec(t *testing.T) {
	trace := &UsageTrace{
		Model:                 "gpt-4.1-mini",
		InputTokens:           120,
		InputCachedTokens:     20,
		OutputTokens:          80,
		OutputReasoningTokens: 5,
		TotalTokens:           200,
		TotalCost:             decimal.RequireFromString("0.001234"),
	}

	blob, err := EncodeUsageTrace(trace)
	require.NoError(t, err)
	decoded, err := DecodeUsageTrace(blob)
	require.NoError(t, err)
	assertTraceEqual(t, trace, decoded)

	fromColumns := trace.Columns().Trace()
	assertTraceEqual(t, trace, fromColumns)

	// both renderings derive from each other
	reencoded, err := EncodeUsageTrace(fromColumns)
	require.NoError(t, err)
	assert.JSONEq(t, string(blob), string(reencoded))

	var empty *UsageTrace
	blob, err = EncodeUsageTrace(empty)
	require.NoError(t, err)
	assert.Nil(t, blob)
	assert.Nil(t, empty.Columns().Trace())

	decoded, err = DecodeUsageTrace([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestUsageColumns_PartialTrace(t *testing.T) {
	model := "gpt-4o"
	trace := UsageColumns{Model: &model, InputCachedTokens: 3}.Trace()
	require.NotNil(t, trace)
	assert.Equal(t, "gpt-4o", trace.Model)
	assert.Equal(t, int64(3), trace.InputCachedTokens)
	assert.True(t, trace.TotalCost.IsZero())

	// defaulted counters alone do not make a trace
	assert.Nil(t, UsageColumns{InputCachedTokens: 0}.Trace())
}

func TestNewConversation(t *testing.T) {
	c, err := NewConversation("", "")
	require.NoError(t, err)
	assert.Regexp(t, `^conversation-\d{14}-[0-9a-f]{8}$`, c.ConversationID)
	assert.Equal(t, DefaultConversationTitle, c.Title)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.True(t, c.TotalCost.IsZero())
	assert.Zero(t, c.TotalTokens)
	assert.NotNil(t, c.Messages)

	c, err = NewConversation("my-id", "Trip planning")
	require.NoError(t, err)
	assert.Equal(t, "my-id", c.ConversationID)
	assert.Equal(t, "Trip planning", c.Title)

	_, err = NewConversation("   ", "")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter))
}

func TestConversation_Normalize(t *testing.T) {
	c := &Conversation{
		ConversationID: "c1",
		CreatedAt:      time.Date(2025, 10, 6, 21, 31, 48, 123456789, time.FixedZone("MSK", 3*3600)),
		TotalCost:      decimal.RequireFromString("0.12345678"),
	}
	c.Normalize()

	assert.Equal(t, DefaultConversationTitle, c.Title)
	assert.Equal(t, time.Date(2025, 10, 6, 18, 31, 48, 123456000, time.UTC), c.CreatedAt)
	assert.Equal(t, "0.123457", c.TotalCost.StringFixed(CostPrecision))
	assert.NotNil(t, c.Messages)
}

func assertTraceEqual(t *testing.T, want, got *UsageTrace) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Model, got.Model)
	assert.Equal(t, want.InputTokens, got.InputTokens)
	assert.Equal(t, want.InputCachedTokens, got.InputCachedTokens)
	assert.Equal(t, want.OutputTokens, got.OutputTokens)
	assert.Equal(t, want.OutputReasoningTokens, got.OutputReasoningTokens)
	assert.Equal(t, want.TotalTokens, got.TotalTokens)
	assert.True(t, want.TotalCost.Equal(got.TotalCost), "cost %s != %s", want.TotalCost, got.TotalCost)
}
