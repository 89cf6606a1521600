package conversation

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// Store storage operations the manager depends on; *storage.Engine satisfies it
type Store interface {
	CreateConversation(ctx context.Context, convID, title string) (*entity.Conversation, error)
	GetConversation(ctx context.Context, convID string, withMessages bool) (*entity.Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error)
	SaveMessage(ctx context.Context, msg *entity.Message) error
	GetConversationHistory(ctx context.Context, convID string, orderDesc bool) ([]*entity.Message, error)
	DeleteConversation(ctx context.Context, convID string) error
}

// Manager conversation manager: request-level orchestration over a Store.
// It holds no state of its own.
type Manager struct {
	store Store
}

// NewManager creates a manager over store
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// ListConversations returns up to limit conversations, newest first, without messages
func (m *Manager) ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error) {
	conversations, err := m.store.ListConversations(ctx, limit)
	if err != nil {
		g.Log().Errorf(ctx, "failed to retrieve conversations: %v", err)
		return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to retrieve conversations")
	}
	g.Log().Infof(ctx, "retrieved %d conversations", len(conversations))
	return conversations, nil
}

// CreateConversation creates a conversation; a taken id is a client error
func (m *Manager) CreateConversation(ctx context.Context, convID, title string) (*entity.Conversation, error) {
	conv, err := m.store.CreateConversation(ctx, convID, title)
	if err != nil {
		if errors.HasCode(err, errors.ErrAlreadyExists) {
			g.Log().Warningf(ctx, "conversation %s already exists", convID)
		} else {
			g.Log().Errorf(ctx, "failed to create conversation: %v", err)
		}
		return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to create conversation")
	}
	g.Log().Infof(ctx, "created conversation %s", conv.ConversationID)
	return conv, nil
}

// GetConversation returns conversation metadata without messages
func (m *Manager) GetConversation(ctx context.Context, convID string) (*entity.Conversation, error) {
	conv, err := m.store.GetConversation(ctx, convID, false)
	if err != nil {
		g.Log().Errorf(ctx, "failed to get conversation %s: %v", convID, err)
		return nil, errors.Wrap(errors.ErrInternalError, err, "Failed to get conversation")
	}
	if conv == nil {
		g.Log().Infof(ctx, "conversation %s not found", convID)
		return nil, conversationNotFound(convID)
	}
	return conv, nil
}

// DeleteConversation deletes a conversation and its messages. Unknown ids are not an error.
func (m *Manager) DeleteConversation(ctx context.Context, convID string) error {
	if err := m.store.DeleteConversation(ctx, convID); err != nil {
		g.Log().Errorf(ctx, "failed to delete conversation %s: %v", convID, err)
		return errors.Wrap(errors.ErrInternalError, err, "Failed to delete conversation")
	}
	g.Log().Infof(ctx, "deleted conversation %s", convID)
	return nil
}

func conversationNotFound(convID string) error {
	return errors.Newf(errors.ErrConversationNotFound, "Conversation %s not found", convID)
}
