package conversation

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"
	"gopkg.in/yaml.v3"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/core/formatter"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// ChatHistoryContentType media type of the rendered export
const ChatHistoryContentType = "application/x-yaml"

// ChatHistoryRecord one exported message
type ChatHistoryRecord struct {
	Role     entity.Role    `yaml:"role"`
	Text     string         `yaml:"text"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// ChatHistory plain-text export of a conversation. Records keep the stored
// order of the conversation's messages, newest first.
type ChatHistory struct {
	ConversationID string
	Filename       string
	Records        []ChatHistoryRecord
}

// ChatHistoryFilename suggested download name of a conversation export
func ChatHistoryFilename(convID string) string {
	return fmt.Sprintf("chat_history_%s.yaml", convID)
}

// ChatHistory builds the export: message text reduced to plain text,
// metadata kept only when it is a non-empty object
func (m *Manager) ChatHistory(ctx context.Context, convID string) (*ChatHistory, error) {
	conv, err := m.store.GetConversation(ctx, convID, true)
	if err != nil {
		g.Log().Errorf(ctx, "failed to load chat history of %s: %v", convID, err)
		return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to get chat history")
	}
	if conv == nil {
		g.Log().Infof(ctx, "conversation %s not found for history", convID)
		return nil, conversationNotFound(convID)
	}

	records := make([]ChatHistoryRecord, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		record := ChatHistoryRecord{
			Role: msg.Role,
			Text: formatter.ToPlainText(msg.Text, msg.TextFormat),
		}
		if msg.HasNonEmptyMetadata() {
			var metadata map[string]any
			if err = sonic.Unmarshal(msg.Metadata, &metadata); err != nil {
				return nil, errors.Wrap(errors.ErrExportFailed, err, "Failed to get chat history")
			}
			record.Metadata = metadata
		}
		records = append(records, record)
	}

	g.Log().Infof(ctx, "chat history prepared: %d messages", len(records))
	return &ChatHistory{
		ConversationID: conv.ConversationID,
		Filename:       ChatHistoryFilename(conv.ConversationID),
		Records:        records,
	}, nil
}

// RenderChatHistory serializes the export records as a YAML document
func RenderChatHistory(h *ChatHistory) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h.Records); err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, err, "Failed to render chat history")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, err, "Failed to render chat history")
	}
	return buf.Bytes(), nil
}
