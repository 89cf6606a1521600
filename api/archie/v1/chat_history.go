package v1

import (
	"github.com/gogf/gf/v2/frame/g"
)

// ChatHistoryReq plain-text YAML export of a conversation
type ChatHistoryReq struct {
	g.Meta         `path:"/chat_history" method:"get" tags:"chat history" summary:"Get chat history as YAML"`
	ConversationID string `json:"conversation_id" v:"required"`
}

// ChatHistoryRes the document is written straight to the response
type ChatHistoryRes struct {
	g.Meta `mime:"application/x-yaml"`
}
