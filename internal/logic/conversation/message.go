package conversation

import (
	"context"
	"encoding/json"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

const defaultLimit = 50

// CreateMessageInput fields accepted when a client posts a message
type CreateMessageInput struct {
	ConversationID string
	Role           entity.Role
	Text           string
	TextFormat     entity.TextFormat
	Metadata       json.RawMessage
}

// ListMessages returns the messages of a conversation oldest first, truncated to limit.
// Listing across all conversations is not supported: an empty id yields an empty list.
func (m *Manager) ListMessages(ctx context.Context, convID string, limit int) ([]*entity.Message, error) {
	if convID == "" {
		g.Log().Warning(ctx, "listing messages without a conversation id is not supported")
		return []*entity.Message{}, nil
	}

	messages, err := m.store.GetConversationHistory(ctx, convID, false)
	if err != nil {
		g.Log().Errorf(ctx, "failed to retrieve messages of %s: %v", convID, err)
		return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to retrieve messages")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}
	g.Log().Infof(ctx, "retrieved %d messages for conversation %s", len(messages), convID)
	return messages, nil
}

// CreateMessage stores a new message.
// Without a conversation id a new conversation is created for it; with an id
// that does not exist the call fails with not-found and nothing is written.
func (m *Manager) CreateMessage(ctx context.Context, in CreateMessageInput) (*entity.Message, error) {
	msg, err := entity.NewMessage(entity.MessageParams{
		ConversationID: in.ConversationID,
		Role:           in.Role,
		Text:           in.Text,
		TextFormat:     in.TextFormat,
		Metadata:       in.Metadata,
	})
	if err != nil {
		g.Log().Warningf(ctx, "rejected message: %v", err)
		return nil, err
	}

	if in.ConversationID == "" {
		if _, err = m.store.CreateConversation(ctx, msg.ConversationID, ""); err != nil {
			g.Log().Errorf(ctx, "failed to create conversation for new message: %v", err)
			return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to create message")
		}
		g.Log().Infof(ctx, "created new conversation %s", msg.ConversationID)
	} else {
		conv, err := m.store.GetConversation(ctx, in.ConversationID, false)
		if err != nil {
			g.Log().Errorf(ctx, "failed to look up conversation %s: %v", in.ConversationID, err)
			return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to create message")
		}
		if conv == nil {
			g.Log().Infof(ctx, "conversation %s not found", in.ConversationID)
			return nil, conversationNotFound(in.ConversationID)
		}
	}

	if err = m.store.SaveMessage(ctx, msg); err != nil {
		g.Log().Errorf(ctx, "failed to save message %s: %v", msg.MessageID, err)
		return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to create message")
	}
	g.Log().Infof(ctx, "created message %s with role %s", msg.MessageID, msg.Role)
	return msg, nil
}
