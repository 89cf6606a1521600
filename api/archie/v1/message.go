package v1

import (
	"time"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/internal/model/entity"
)

// MessageListReq messages of a conversation, oldest first
type MessageListReq struct {
	g.Meta         `path:"/messages" method:"get" tags:"messages" summary:"Get messages"`
	ConversationID string `json:"conversation_id"` // filter by conversation
	Limit          int    `json:"limit" d:"50"`    // maximum number of messages to return
}

// MessageListRes list of messages
type MessageListRes []*entity.Message

// MessageCreateReq post a message. Without conversation_id a new conversation is started.
type MessageCreateReq struct {
	g.Meta         `path:"/messages" method:"post" tags:"messages" summary:"Create a new message"`
	ConversationID string      `json:"conversation_id"`
	Role           string      `json:"role" v:"required|in:user,assistant,system"`
	Text           string      `json:"text"`
	TextFormat     string      `json:"text_format" d:"plain" v:"in:plain,markdown,html,voice"`
	Metadata       interface{} `json:"metadata"` // JSON object, anything else is rejected
}

// MessageCreateRes created message
type MessageCreateRes struct {
	g.Meta         `mime:"application/json"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	Message        string    `json:"message"`
}
