package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/NikGor/archie-backend/internal/model/entity"
)

// Conversation 会话表
type Conversation struct {
	ConversationID    string          `gorm:"primaryKey;column:conversation_id;type:varchar(255)"`
	Title             string          `gorm:"column:title;type:varchar(255);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;not null;index;precision:6;autoCreateTime:false"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;not null;precision:6;autoUpdateTime:false"`
	TotalInputTokens  int64           `gorm:"column:total_input_tokens;not null"`
	TotalOutputTokens int64           `gorm:"column:total_output_tokens;not null"`
	TotalTokens       int64           `gorm:"column:total_tokens;not null"`
	TotalCost         decimal.Decimal `gorm:"column:total_cost;type:numeric(10,6);not null"`
}

// TableName 表名
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversationRow maps the entity onto its row; messages are not included
func NewConversationRow(c *entity.Conversation) *Conversation {
	return &Conversation{
		ConversationID:    c.ConversationID,
		Title:             c.Title,
		CreatedAt:         entity.NormalizeTime(c.CreatedAt),
		UpdatedAt:         entity.NormalizeTime(c.UpdatedAt),
		TotalInputTokens:  c.TotalInputTokens,
		TotalOutputTokens: c.TotalOutputTokens,
		TotalTokens:       c.TotalTokens,
		TotalCost:         entity.RoundCost(c.TotalCost),
	}
}

// ToEntity maps the row back; Messages is left empty
func (c *Conversation) ToEntity() *entity.Conversation {
	return &entity.Conversation{
		ConversationID:    c.ConversationID,
		Title:             c.Title,
		CreatedAt:         entity.NormalizeTime(c.CreatedAt),
		UpdatedAt:         entity.NormalizeTime(c.UpdatedAt),
		TotalInputTokens:  c.TotalInputTokens,
		TotalOutputTokens: c.TotalOutputTokens,
		TotalTokens:       c.TotalTokens,
		TotalCost:         c.TotalCost,
		Messages:          []*entity.Message{},
	}
}

// JSON opaque JSON stored as text, written and read back verbatim
type JSON json.RawMessage

// GormDBDataType implements schema.GormDataTypeInterface
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return longTextType(db)
}

// Scan implements sql.Scanner
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	default:
		return nil
	}
	return nil
}

// Value implements driver.Valuer
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}
