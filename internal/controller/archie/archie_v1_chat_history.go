package archie

import (
	"context"
	"fmt"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/api/archie/v1"
	"github.com/NikGor/archie-backend/internal/logic/conversation"
)

// ChatHistory writes the YAML export of a conversation
func (c *ControllerV1) ChatHistory(ctx context.Context, req *v1.ChatHistoryReq) (res *v1.ChatHistoryRes, err error) {
	g.Log().Infof(ctx, "ChatHistory request - ConversationID: %s", req.ConversationID)

	history, err := c.manager.ChatHistory(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	doc, err := conversation.RenderChatHistory(history)
	if err != nil {
		return nil, err
	}

	r := g.RequestFromCtx(ctx)
	r.Response.Header().Set("Content-Type", conversation.ChatHistoryContentType)
	r.Response.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s", history.Filename))
	r.Response.Write(doc)
	return nil, nil
}
