package gorm

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/NikGor/archie-backend/internal/model/entity"
)

// Message messages table. The usage trace is flattened into the llm_model ..
// total_cost columns; all of them are NULL when the message has no trace.
type Message struct {
	MessageID             string              `gorm:"primaryKey;column:message_id;type:varchar(255)"`
	ConversationID        string              `gorm:"column:conversation_id;type:varchar(255);not null;index"`
	Role                  string              `gorm:"column:role;type:varchar(20);not null;check:role IN ('user','assistant','system')"`
	TextFormat            string              `gorm:"column:text_format;type:varchar(20);not null;check:text_format IN ('plain','markdown','html','voice')"`
	Text                  LongText            `gorm:"column:text;not null"`
	Metadata              JSON                `gorm:"column:metadata"`
	CreatedAt             time.Time           `gorm:"column:created_at;not null;index;precision:6;autoCreateTime:false"`
	PreviousMessageID     *string             `gorm:"column:previous_message_id;type:varchar(255)"`
	Model                 *string             `gorm:"column:model;type:varchar(255)"`
	LLMModel              *string             `gorm:"column:llm_model;type:varchar(255)"`
	InputTokens           *int64              `gorm:"column:input_tokens"`
	InputCachedTokens     int64               `gorm:"column:input_cached_tokens;not null"`
	OutputTokens          *int64              `gorm:"column:output_tokens"`
	OutputReasoningTokens int64               `gorm:"column:output_reasoning_tokens;not null"`
	TotalTokens           *int64              `gorm:"column:total_tokens"`
	TotalCost             decimal.NullDecimal `gorm:"column:total_cost;type:numeric(10,6)"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;references:ConversationID;constraint:OnDelete:CASCADE"`
}

// LongText 不限长度的文本列, MySQL 的 TEXT 只有 64KB
type LongText string

// GormDBDataType implements schema.GormDataTypeInterface
func (LongText) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return longTextType(db)
}

func longTextType(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "longtext"
	}
	return "text"
}

// TableName 表名
func (Message) TableName() string {
	return "messages"
}

// BeforeSave 写入前校验枚举列
func (m *Message) BeforeSave(tx *gorm.DB) error {
	if err := entity.Role(m.Role).Validate(); err != nil {
		return err
	}
	return entity.TextFormat(m.TextFormat).Validate()
}

// NewMessageRow maps the entity onto its row
func NewMessageRow(m *entity.Message) *Message {
	usage := m.LLMTrace.Columns()
	row := &Message{
		MessageID:             m.MessageID,
		ConversationID:        m.ConversationID,
		Role:                  string(m.Role),
		TextFormat:            string(m.TextFormat),
		Text:                  LongText(m.Text),
		CreatedAt:             entity.NormalizeTime(m.CreatedAt),
		PreviousMessageID:     optional(m.PreviousMessageID),
		Model:                 optional(m.Model),
		LLMModel:              usage.Model,
		InputTokens:           usage.InputTokens,
		InputCachedTokens:     usage.InputCachedTokens,
		OutputTokens:          usage.OutputTokens,
		OutputReasoningTokens: usage.OutputReasoningTokens,
		TotalTokens:           usage.TotalTokens,
		TotalCost:             usage.TotalCost,
	}
	if m.HasMetadata() {
		row.Metadata = JSON(m.Metadata)
	}
	return row
}

// ToEntity maps the row back
func (m *Message) ToEntity() *entity.Message {
	msg := &entity.Message{
		MessageID:      m.MessageID,
		ConversationID: m.ConversationID,
		Role:           entity.Role(m.Role),
		Text:           string(m.Text),
		TextFormat:     entity.TextFormat(m.TextFormat),
		CreatedAt:      entity.NormalizeTime(m.CreatedAt),
		LLMTrace: entity.UsageColumns{
			Model:                 m.LLMModel,
			InputTokens:           m.InputTokens,
			InputCachedTokens:     m.InputCachedTokens,
			OutputTokens:          m.OutputTokens,
			OutputReasoningTokens: m.OutputReasoningTokens,
			TotalTokens:           m.TotalTokens,
			TotalCost:             m.TotalCost,
		}.Trace(),
	}
	if len(m.Metadata) > 0 {
		msg.Metadata = json.RawMessage(m.Metadata)
	}
	if m.PreviousMessageID != nil {
		msg.PreviousMessageID = *m.PreviousMessageID
	}
	if m.Model != nil {
		msg.Model = *m.Model
	}
	return msg
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
