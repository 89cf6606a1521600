package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NikGor/archie-backend/core/errors"
)

// DefaultConversationTitle title of conversations created without one
const DefaultConversationTitle = "New Conversation"

// Conversation titled container of messages with aggregated usage totals.
// The totals are stored as written; TotalTokens is not recomputed.
type Conversation struct {
	ConversationID    string          `json:"conversation_id"`
	Title             string          `json:"title"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	TotalInputTokens  int64           `json:"total_input_tokens"`
	TotalOutputTokens int64           `json:"total_output_tokens"`
	TotalTokens       int64           `json:"total_tokens"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Messages          []*Message      `json:"messages"`
}

// NewConversation creates a conversation with zero totals and
// created_at == updated_at == now. An empty id is generated, an empty title defaulted.
func NewConversation(id, title string) (*Conversation, error) {
	if id == "" {
		id = GenerateConversationID()
	}
	if title == "" {
		title = DefaultConversationTitle
	}
	now := Now()
	c := &Conversation{
		ConversationID: id,
		Title:          title,
		CreatedAt:      now,
		UpdatedAt:      now,
		TotalCost:      decimal.Zero,
		Messages:       []*Message{},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the conversation invariants
func (c *Conversation) Validate() error {
	if strings.TrimSpace(c.ConversationID) == "" {
		return errors.New(errors.ErrInvalidParameter, "conversation_id must be a non-empty string")
	}
	if c.TotalInputTokens < 0 || c.TotalOutputTokens < 0 || c.TotalTokens < 0 {
		return errors.New(errors.ErrInvalidParameter, "conversation token totals must be non-negative")
	}
	if c.TotalCost.IsNegative() {
		return errors.New(errors.ErrInvalidParameter, "conversation total_cost must be non-negative")
	}
	return nil
}

// Normalize converts timestamps to UTC microseconds, defaults the title,
// rounds the cost and never leaves Messages nil. Zero timestamps become now.
func (c *Conversation) Normalize() {
	if c.Title == "" {
		c.Title = DefaultConversationTitle
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	c.CreatedAt = NormalizeTime(c.CreatedAt)
	c.UpdatedAt = NormalizeTime(c.UpdatedAt)
	c.TotalCost = RoundCost(c.TotalCost)
	if c.Messages == nil {
		c.Messages = []*Message{}
	}
}
