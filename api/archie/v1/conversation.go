package v1

import (
	"time"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/internal/model/entity"
)

// ConversationListReq list conversations, newest first
type ConversationListReq struct {
	g.Meta `path:"/conversations" method:"get" tags:"conversations" summary:"Get all conversations"`
	Limit  int `json:"limit" d:"50"` // maximum number of conversations to return
}

// ConversationListRes conversations without their messages
type ConversationListRes []*entity.Conversation

// ConversationCreateReq create a conversation
type ConversationCreateReq struct {
	g.Meta         `path:"/conversations" method:"post" tags:"conversations" summary:"Create a new conversation"`
	ConversationID string `json:"conversation_id"` // optional, generated when empty
	Title          string `json:"title"`           // optional, defaults to "New Conversation"
}

// ConversationCreateRes created conversation
type ConversationCreateRes struct {
	g.Meta         `mime:"application/json"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	Message        string    `json:"message"`
}

// ConversationGetReq conversation metadata
type ConversationGetReq struct {
	g.Meta         `path:"/conversations/{conversation_id}" method:"get" tags:"conversations" summary:"Get conversation metadata"`
	ConversationID string `json:"conversation_id" in:"path" v:"required"`
}

// ConversationGetRes conversation without messages
type ConversationGetRes struct {
	g.Meta `mime:"application/json"`
	*entity.Conversation
}

// ConversationDeleteReq delete a conversation and its messages
type ConversationDeleteReq struct {
	g.Meta         `path:"/conversations/{conversation_id}" method:"delete" tags:"conversations" summary:"Delete a conversation"`
	ConversationID string `json:"conversation_id" in:"path" v:"required"`
}

// ConversationDeleteRes delete result
type ConversationDeleteRes struct {
	g.Meta  `mime:"application/json"`
	Message string `json:"message"`
}
