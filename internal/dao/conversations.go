package dao

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
	gormModel "github.com/NikGor/archie-backend/internal/model/gorm"
)

const conversationOrder = "created_at DESC, conversation_id DESC"

// CreateConversation inserts a conversation; an existing id is reported as
// ErrAlreadyExists and its row is left as it was
func (s *Store) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "conversation_id"}}, DoNothing: true}).
		Create(gormModel.NewConversationRow(conv))
	if result.Error != nil {
		g.Log().Errorf(ctx, "failed to create conversation %s: %v", conv.ConversationID, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.Newf(errors.ErrAlreadyExists, "conversation %s already exists", conv.ConversationID)
	}
	return nil
}

// GetConversation 查询单个会话, 不存在时返回 (nil, nil)
func (s *Store) GetConversation(ctx context.Context, convID string) (*entity.Conversation, error) {
	var rows []*gormModel.Conversation
	if err := s.db.WithContext(ctx).Where("conversation_id = ?", convID).Limit(1).Find(&rows).Error; err != nil {
		g.Log().Errorf(ctx, "failed to query conversation %s: %v", convID, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToEntity(), nil
}

// ListConversations newest first by created_at
func (s *Store) ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error) {
	var rows []*gormModel.Conversation
	if err := s.db.WithContext(ctx).Order(conversationOrder).Limit(limit).Find(&rows).Error; err != nil {
		g.Log().Errorf(ctx, "failed to list conversations: %v", err)
		return nil, err
	}
	conversations := make([]*entity.Conversation, 0, len(rows))
	for _, row := range rows {
		conversations = append(conversations, row.ToEntity())
	}
	return conversations, nil
}

// ListConversationIDs newest first by created_at
func (s *Store) ListConversationIDs(ctx context.Context, limit int) ([]string, error) {
	ids := make([]string, 0)
	err := s.db.WithContext(ctx).Model(&gormModel.Conversation{}).
		Order(conversationOrder).Limit(limit).Pluck("conversation_id", &ids).Error
	if err != nil {
		g.Log().Errorf(ctx, "failed to list conversation ids: %v", err)
		return nil, err
	}
	return ids, nil
}

// SaveConversation upserts the conversation row and every message in one transaction
func (s *Store) SaveConversation(ctx context.Context, conv *entity.Conversation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			UpdateAll: true,
		}).Create(gormModel.NewConversationRow(conv)).Error
		if err != nil {
			g.Log().Errorf(ctx, "failed to upsert conversation %s: %v", conv.ConversationID, err)
			return err
		}
		for _, msg := range conv.Messages {
			if err = upsertMessage(ctx, tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteConversation 先删除消息, 再删除会话
func (s *Store) DeleteConversation(ctx context.Context, convID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", convID).Delete(&gormModel.Message{}).Error; err != nil {
			g.Log().Errorf(ctx, "failed to delete messages of %s: %v", convID, err)
			return err
		}
		if err := tx.Where("conversation_id = ?", convID).Delete(&gormModel.Conversation{}).Error; err != nil {
			g.Log().Errorf(ctx, "failed to delete conversation %s: %v", convID, err)
			return err
		}
		return nil
	})
}
