package entity

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/NikGor/archie-backend/core/errors"
)

// Role author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Validate rejects anything outside user/assistant/system
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return nil
	default:
		return errors.Newf(errors.ErrInvalidParameter, "invalid role %q: must be one of user, assistant, system", string(r))
	}
}

// TextFormat markup of a message body
type TextFormat string

const (
	TextFormatPlain    TextFormat = "plain"
	TextFormatMarkdown TextFormat = "markdown"
	TextFormatHTML     TextFormat = "html"
	TextFormatVoice    TextFormat = "voice"
)

// Validate rejects anything outside plain/markdown/html/voice
func (f TextFormat) Validate() error {
	switch f {
	case TextFormatPlain, TextFormatMarkdown, TextFormatHTML, TextFormatVoice:
		return nil
	default:
		return errors.Newf(errors.ErrInvalidParameter, "invalid text_format %q: must be one of plain, markdown, html, voice", string(f))
	}
}

// Message one turn of a conversation.
// Metadata is an opaque JSON object stored verbatim.
type Message struct {
	MessageID         string          `json:"message_id"`
	ConversationID    string          `json:"conversation_id"`
	Role              Role            `json:"role"`
	Text              string          `json:"text"`
	TextFormat        TextFormat      `json:"text_format"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	PreviousMessageID string          `json:"previous_message_id,omitempty"`
	Model             string          `json:"model,omitempty"`
	LLMTrace          *UsageTrace     `json:"llm_trace,omitempty"`
}

// MessageParams input of NewMessage. Empty ids are generated, an empty
// TextFormat defaults to plain and a zero CreatedAt becomes now.
type MessageParams struct {
	MessageID         string
	ConversationID    string
	Role              Role
	Text              string
	TextFormat        TextFormat
	Metadata          json.RawMessage
	CreatedAt         time.Time
	PreviousMessageID string
	Model             string
	LLMTrace          *UsageTrace
}

// NewMessage builds and validates a message
func NewMessage(p MessageParams) (*Message, error) {
	m := &Message{
		MessageID:         p.MessageID,
		ConversationID:    p.ConversationID,
		Role:              p.Role,
		Text:              p.Text,
		TextFormat:        p.TextFormat,
		Metadata:          p.Metadata,
		CreatedAt:         p.CreatedAt,
		PreviousMessageID: p.PreviousMessageID,
		Model:             p.Model,
		LLMTrace:          p.LLMTrace,
	}
	if m.MessageID == "" {
		m.MessageID = GenerateMessageID()
	}
	if m.ConversationID == "" {
		m.ConversationID = GenerateConversationID()
	}
	if m.TextFormat == "" {
		m.TextFormat = TextFormatPlain
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = Now()
	}
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate enforces the message invariants
func (m *Message) Validate() error {
	if strings.TrimSpace(m.MessageID) == "" {
		return errors.New(errors.ErrInvalidParameter, "message_id must be a non-empty string")
	}
	if strings.TrimSpace(m.ConversationID) == "" {
		return errors.New(errors.ErrInvalidParameter, "conversation_id must be a non-empty string")
	}
	if err := m.Role.Validate(); err != nil {
		return err
	}
	if err := m.TextFormat.Validate(); err != nil {
		return err
	}
	if m.HasMetadata() {
		var obj map[string]any
		if err := sonic.Unmarshal(m.Metadata, &obj); err != nil {
			return errors.New(errors.ErrInvalidParameter, "metadata must be a JSON object")
		}
	}
	return m.LLMTrace.Validate()
}

// Normalize converts timestamps to UTC microseconds, rounds the trace cost and
// drops a JSON null metadata value.
func (m *Message) Normalize() {
	m.CreatedAt = NormalizeTime(m.CreatedAt)
	if isNullJSON(m.Metadata) {
		m.Metadata = nil
	}
	if m.LLMTrace != nil {
		m.LLMTrace.TotalCost = RoundCost(m.LLMTrace.TotalCost)
	}
}

// HasMetadata reports whether the message carries a metadata value
func (m *Message) HasMetadata() bool {
	return !isNullJSON(m.Metadata)
}

// HasNonEmptyMetadata reports whether metadata is present and not an empty object
func (m *Message) HasNonEmptyMetadata() bool {
	if !m.HasMetadata() {
		return false
	}
	var obj map[string]any
	if err := sonic.Unmarshal(m.Metadata, &obj); err != nil {
		return true
	}
	return len(obj) > 0
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// AgentMessage chronological history entry handed to a model context window
type AgentMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
