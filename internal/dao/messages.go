package dao

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NikGor/archie-backend/internal/model/entity"
	gormModel "github.com/NikGor/archie-backend/internal/model/gorm"
)

// SaveMessage inserts the parent conversation if absent, upserts the message
// and bumps the parent's updated_at, all in one transaction
func (s *Store) SaveMessage(ctx context.Context, msg *entity.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := entity.Now()
		parent := &gormModel.Conversation{
			ConversationID: msg.ConversationID,
			Title:          entity.DefaultConversationTitle,
			CreatedAt:      now,
			UpdatedAt:      now,
			TotalCost:      decimal.Zero,
		}
		err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "conversation_id"}}, DoNothing: true}).
			Create(parent).Error
		if err != nil {
			g.Log().Errorf(ctx, "failed to ensure conversation %s: %v", msg.ConversationID, err)
			return err
		}

		if err = upsertMessage(ctx, tx, msg); err != nil {
			return err
		}

		err = tx.Model(&gormModel.Conversation{}).
			Where("conversation_id = ?", msg.ConversationID).
			Update("updated_at", now).Error
		if err != nil {
			g.Log().Errorf(ctx, "failed to touch conversation %s: %v", msg.ConversationID, err)
		}
		return err
	})
}

// ListMessages 按 created_at 排序, 相同时按 message_id
func (s *Store) ListMessages(ctx context.Context, convID string, orderDesc bool) ([]*entity.Message, error) {
	order := "created_at ASC, message_id ASC"
	if orderDesc {
		order = "created_at DESC, message_id DESC"
	}
	var rows []*gormModel.Message
	if err := s.db.WithContext(ctx).Where("conversation_id = ?", convID).Order(order).Find(&rows).Error; err != nil {
		g.Log().Errorf(ctx, "failed to list messages of %s: %v", convID, err)
		return nil, err
	}
	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.ToEntity())
	}
	return messages, nil
}

func upsertMessage(ctx context.Context, tx *gorm.DB, msg *entity.Message) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		UpdateAll: true,
	}).Create(gormModel.NewMessageRow(msg)).Error
	if err != nil {
		g.Log().Errorf(ctx, "failed to upsert message %s: %v", msg.MessageID, err)
	}
	return err
}
