package storage

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// DefaultLimit used when a list call passes a non-positive limit
const DefaultLimit = 50

// Engine storage engine: applies the data model rules and delegates
// persistence to a Backend. It keeps no state besides the backend handle,
// so every read goes to storage.
type Engine struct {
	backend Backend
}

// NewEngine wraps a backend
func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend}
}

// Backend returns the underlying backend
func (e *Engine) Backend() Backend {
	return e.backend
}

// CreateConversation creates a conversation. An empty id is generated, an empty
// title defaults to "New Conversation". Fails with ErrAlreadyExists when the id is taken.
func (e *Engine) CreateConversation(ctx context.Context, convID, title string) (*entity.Conversation, error) {
	conv, err := entity.NewConversation(convID, title)
	if err != nil {
		return nil, err
	}
	if err = e.backend.CreateConversation(ctx, conv); err != nil {
		return nil, errors.Wrapf(errors.ErrDatabaseInsert, err, "failed to create conversation %s", conv.ConversationID)
	}
	g.Log().Debugf(ctx, "[%s] created conversation %s", e.backend.Name(), conv.ConversationID)
	return conv, nil
}

// GetConversation returns the conversation or (nil, nil) when it does not exist.
// With withMessages the messages are attached newest first; without it the
// message query is not run and Messages is empty.
func (e *Engine) GetConversation(ctx context.Context, convID string, withMessages bool) (*entity.Conversation, error) {
	conv, err := e.backend.GetConversation(ctx, convID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabaseQuery, err, "failed to load conversation %s", convID)
	}
	if conv == nil {
		return nil, nil
	}
	conv.Messages = []*entity.Message{}
	if !withMessages {
		return conv, nil
	}

	messages, err := e.GetConversationHistory(ctx, convID, true)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return conv, nil
}

// ListConversations returns up to limit conversations, newest first, without messages
func (e *Engine) ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error) {
	conversations, err := e.backend.ListConversations(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseQuery, err, "failed to list conversations")
	}
	for _, conv := range conversations {
		conv.Messages = []*entity.Message{}
	}
	return conversations, nil
}

// ListConversationIDs returns up to limit conversation ids, newest first
func (e *Engine) ListConversationIDs(ctx context.Context, limit int) ([]string, error) {
	ids, err := e.backend.ListConversationIDs(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseQuery, err, "failed to list conversation ids")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// SaveMessage upserts a message by id. A missing parent conversation is
// created with the default title first.
func (e *Engine) SaveMessage(ctx context.Context, msg *entity.Message) error {
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := e.backend.SaveMessage(ctx, msg); err != nil {
		return errors.Wrapf(errors.ErrDatabaseInsert, err, "failed to save message %s", msg.MessageID)
	}
	g.Log().Debugf(ctx, "[%s] saved message %s", e.backend.Name(), msg.MessageID)
	return nil
}

// SaveConversation upserts the conversation and all of its messages in one
// atomic unit. Messages are re-parented onto the conversation.
func (e *Engine) SaveConversation(ctx context.Context, conv *entity.Conversation) error {
	conv.Normalize()
	if err := conv.Validate(); err != nil {
		return err
	}
	for _, msg := range conv.Messages {
		msg.ConversationID = conv.ConversationID
		msg.Normalize()
		if err := msg.Validate(); err != nil {
			return err
		}
	}
	if err := e.backend.SaveConversation(ctx, conv); err != nil {
		return errors.Wrapf(errors.ErrDatabaseInsert, err, "failed to save conversation %s", conv.ConversationID)
	}
	g.Log().Debugf(ctx, "[%s] saved conversation %s with %d messages", e.backend.Name(), conv.ConversationID, len(conv.Messages))
	return nil
}

// GetConversationHistory returns the messages of a conversation by created_at,
// ascending or descending. Unknown conversations yield an empty slice.
func (e *Engine) GetConversationHistory(ctx context.Context, convID string, orderDesc bool) ([]*entity.Message, error) {
	messages, err := e.backend.ListMessages(ctx, convID, orderDesc)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabaseQuery, err, "failed to load history of conversation %s", convID)
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	g.Log().Debugf(ctx, "[%s] loaded %d messages for conversation %s", e.backend.Name(), len(messages), convID)
	return messages, nil
}

// GetConversationHistoryForAgent returns the chronological role/content pairs
// used to build a model context window
func (e *Engine) GetConversationHistoryForAgent(ctx context.Context, convID string) ([]entity.AgentMessage, error) {
	messages, err := e.GetConversationHistory(ctx, convID, false)
	if err != nil {
		return nil, err
	}
	history := make([]entity.AgentMessage, 0, len(messages))
	for _, msg := range messages {
		history = append(history, entity.AgentMessage{Role: msg.Role, Content: msg.Text})
	}
	return history, nil
}

// DeleteConversation deletes the messages of a conversation and then the
// conversation itself. Deleting an unknown id is not an error.
func (e *Engine) DeleteConversation(ctx context.Context, convID string) error {
	if err := e.backend.DeleteConversation(ctx, convID); err != nil {
		return errors.Wrapf(errors.ErrDatabaseDelete, err, "failed to delete conversation %s", convID)
	}
	g.Log().Debugf(ctx, "[%s] deleted conversation %s", e.backend.Name(), convID)
	return nil
}

// Close releases the backend
func (e *Engine) Close() error {
	return e.backend.Close()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
