package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/errors/gcode"
	"github.com/gogf/gf/v2/errors/gerror"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/gclient"
	"github.com/gogf/gf/v2/util/guid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/NikGor/archie-backend/core/config"
	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/storage"
)

func newTestClient(t *testing.T) *gclient.Client {
	t.Helper()
	ctx := context.Background()

	backend, err := NewBackend(ctx, &config.StorageConfig{
		Backend: config.BackendBolt,
		Path:    filepath.Join(t.TempDir(), "archie.bolt"),
	})
	require.NoError(t, err)
	engine := storage.NewEngine(backend)

	s := g.Server(guid.S())
	BindRoutes(s, engine)
	s.SetAddr("127.0.0.1:0")
	s.SetDumpRouterMap(false)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Shutdown()
		_ = engine.Close()
	})
	time.Sleep(100 * time.Millisecond)

	client := g.Client()
	client.SetPrefix(fmt.Sprintf("http://127.0.0.1:%d", s.GetListenedPort()))
	return client
}

type response struct {
	status int
	header http.Header
	body   string
}

func do(t *testing.T, client *gclient.Client, method, path string, data ...interface{}) response {
	t.Helper()
	resp, err := client.ContentJson().DoRequest(context.Background(), method, path, data...)
	require.NoError(t, err)
	defer resp.Close()
	return response{status: resp.StatusCode, header: resp.Header, body: resp.ReadAllString()}
}

func decode(t *testing.T, r response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.UnmarshalString(r.body, &out), r.body)
	return out
}

func TestConversationEndpoints(t *testing.T) {
	client := newTestClient(t)

	created := do(t, client, http.MethodPost, "/conversations", g.Map{"conversation_id": "trip", "title": "Trip"})
	require.Equal(t, http.StatusOK, created.status, created.body)
	body := decode(t, created)
	assert.Equal(t, "trip", body["conversation_id"])
	assert.Equal(t, "Trip", body["title"])
	assert.Equal(t, "Conversation created successfully", body["message"])

	duplicate := do(t, client, http.MethodPost, "/conversations", g.Map{"conversation_id": "trip"})
	assert.Equal(t, http.StatusBadRequest, duplicate.status)
	assert.Contains(t, decode(t, duplicate), "detail")

	got := do(t, client, http.MethodGet, "/conversations/trip")
	require.Equal(t, http.StatusOK, got.status, got.body)
	assert.Equal(t, "Trip", decode(t, got)["title"])

	missing := do(t, client, http.MethodGet, "/conversations/nope")
	assert.Equal(t, http.StatusNotFound, missing.status)
	assert.Equal(t, "Conversation nope not found", decode(t, missing)["detail"])

	_ = do(t, client, http.MethodPost, "/conversations", g.Map{})
	list := do(t, client, http.MethodGet, "/conversations?limit=1")
	require.Equal(t, http.StatusOK, list.status, list.body)
	var conversations []map[string]any
	require.NoError(t, sonic.UnmarshalString(list.body, &conversations))
	assert.Len(t, conversations, 1)

	deleted := do(t, client, http.MethodDelete, "/conversations/trip")
	require.Equal(t, http.StatusOK, deleted.status, deleted.body)
	assert.Equal(t, "Conversation deleted successfully", decode(t, deleted)["message"])
	assert.Equal(t, http.StatusNotFound, do(t, client, http.MethodGet, "/conversations/trip").status)
}

func TestMessageEndpoints(t *testing.T) {
	client := newTestClient(t)

	first := do(t, client, http.MethodPost, "/messages", g.Map{
		"role":        "user",
		"text":        "**hello**",
		"text_format": "markdown",
		"metadata":    g.Map{"client": "web"},
	})
	require.Equal(t, http.StatusOK, first.status, first.body)
	body := decode(t, first)
	convID, _ := body["conversation_id"].(string)
	require.NotEmpty(t, convID)
	assert.NotEmpty(t, body["message_id"])
	assert.Equal(t, "Message created successfully", body["message"])

	second := do(t, client, http.MethodPost, "/messages", g.Map{
		"conversation_id": convID,
		"role":            "assistant",
		"text":            "hi there",
	})
	require.Equal(t, http.StatusOK, second.status, second.body)

	list := do(t, client, http.MethodGet, "/messages?conversation_id="+convID)
	require.Equal(t, http.StatusOK, list.status, list.body)
	var messages []map[string]any
	require.NoError(t, sonic.UnmarshalString(list.body, &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "**hello**", messages[0]["text"])
	assert.Equal(t, "markdown", messages[0]["text_format"])
	assert.Equal(t, map[string]any{"client": "web"}, messages[0]["metadata"])
	assert.Equal(t, "plain", messages[1]["text_format"])

	empty := do(t, client, http.MethodGet, "/messages")
	require.Equal(t, http.StatusOK, empty.status, empty.body)
	assert.JSONEq(t, "[]", empty.body)

	unknown := do(t, client, http.MethodPost, "/messages", g.Map{"conversation_id": "ghost", "role": "user", "text": "x"})
	assert.Equal(t, http.StatusNotFound, unknown.status)
	assert.Equal(t, "Conversation ghost not found", decode(t, unknown)["detail"])

	badRole := do(t, client, http.MethodPost, "/messages", g.Map{"role": "bot", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, badRole.status)
	assert.NotEmpty(t, decode(t, badRole)["detail"])

	badFormat := do(t, client, http.MethodPost, "/messages", g.Map{"role": "user", "text": "x", "text_format": "pdf"})
	assert.Equal(t, http.StatusBadRequest, badFormat.status)

	for _, metadata := range []string{`[1,2]`, `["a","b","c"]`, `"str"`} {
		resp := do(t, client, http.MethodPost, "/messages",
			`{"conversation_id":"`+convID+`","role":"user","text":"x","metadata":`+metadata+`}`)
		assert.Equal(t, http.StatusBadRequest, resp.status, metadata)
		assert.Equal(t, "metadata must be a JSON object", decode(t, resp)["detail"])
	}
	after := do(t, client, http.MethodGet, "/messages?conversation_id="+convID)
	require.NoError(t, sonic.UnmarshalString(after.body, &messages))
	assert.Len(t, messages, 2, "rejected metadata must not store a message")
}

func TestChatHistoryEndpoint(t *testing.T) {
	client := newTestClient(t)

	created := do(t, client, http.MethodPost, "/messages", g.Map{
		"role":        "user",
		"text":        "<p>Hello &amp; welcome</p>",
		"text_format": "html",
	})
	require.Equal(t, http.StatusOK, created.status, created.body)
	convID := decode(t, created)["conversation_id"].(string)

	history := do(t, client, http.MethodGet, "/chat_history?conversation_id="+convID)
	require.Equal(t, http.StatusOK, history.status, history.body)
	assert.Equal(t, "application/x-yaml", history.header.Get("Content-Type"))
	assert.Equal(t, "inline; filename=chat_history_"+convID+".yaml", history.header.Get("Content-Disposition"))

	var records []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(history.body), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "user", records[0]["role"])
	assert.Equal(t, "Hello & welcome", records[0]["text"])

	missing := do(t, client, http.MethodGet, "/chat_history?conversation_id=nope")
	assert.Equal(t, http.StatusNotFound, missing.status)
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{
			name:   "not found",
			err:    errors.New(errors.ErrConversationNotFound, "Conversation c1 not found"),
			status: http.StatusNotFound,
			detail: "Conversation c1 not found",
		},
		{
			name:   "conflict",
			err:    errors.New(errors.ErrAlreadyExists, "conversation c1 already exists"),
			status: http.StatusBadRequest,
			detail: "conversation c1 already exists",
		},
		{
			name:   "storage failure keeps cause out",
			err:    errors.Wrap(errors.ErrDatabaseQuery, stderrors.New("disk I/O error"), "Failed to get conversation"),
			status: http.StatusInternalServerError,
			detail: "Failed to get conversation",
		},
		{
			name:   "server error without message",
			err:    &errors.AppError{Code: errors.ErrDatabaseDelete, Err: stderrors.New("locked")},
			status: http.StatusInternalServerError,
			detail: internalErrorMessage,
		},
		{
			name:   "validation",
			err:    gerror.NewCode(gcode.CodeValidationFailed, "The Role value `bot` is not in acceptable range"),
			status: http.StatusBadRequest,
			detail: "The Role value `bot` is not in acceptable range",
		},
		{
			name:   "unclassified",
			err:    stderrors.New("panic: nil map"),
			status: http.StatusInternalServerError,
			detail: internalErrorMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := errorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.detail, detail)
		})
	}
}

func TestNewBackendRejectsUnknown(t *testing.T) {
	_, err := NewBackend(context.Background(), &config.StorageConfig{Backend: "redis"})
	require.Error(t, err)
}
