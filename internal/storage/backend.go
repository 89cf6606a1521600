package storage

import (
	"context"

	"github.com/NikGor/archie-backend/internal/model/entity"
)

// Backend persistence strategy behind Engine. Implementations receive
// validated, normalized entities and must provide:
//   - CreateConversation fails with errors.ErrAlreadyExists and leaves the stored row untouched
//     when the id exists.
//   - GetConversation returns (nil, nil) for an unknown id and never loads messages.
//   - SaveMessage inserts the parent conversation if absent (default title, zero
//     totals, created_at = updated_at = now) as one insert-if-absent step, upserts the
//     message and sets the parent's updated_at to now, all atomically.
//   - SaveConversation upserts the conversation row and every message atomically.
//   - ListMessages orders by created_at with a deterministic tie-break; the
//     descending order is the exact reverse of the ascending one.
//   - DeleteConversation removes messages first, then the row; unknown ids are a no-op.
type Backend interface {
	Name() string
	CreateConversation(ctx context.Context, conv *entity.Conversation) error
	GetConversation(ctx context.Context, convID string) (*entity.Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error)
	ListConversationIDs(ctx context.Context, limit int) ([]string, error)
	SaveMessage(ctx context.Context, msg *entity.Message) error
	SaveConversation(ctx context.Context, conv *entity.Conversation) error
	ListMessages(ctx context.Context, convID string, orderDesc bool) ([]*entity.Message, error)
	DeleteConversation(ctx context.Context, convID string) error
	Close() error
}
