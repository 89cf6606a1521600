package archie

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/api/archie/v1"
)

// ConversationList lists conversations, newest first
func (c *ControllerV1) ConversationList(ctx context.Context, req *v1.ConversationListReq) (res *v1.ConversationListRes, err error) {
	g.Log().Infof(ctx, "ConversationList request - Limit: %d", req.Limit)

	conversations, err := c.manager.ListConversations(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	list := v1.ConversationListRes(conversations)
	return &list, nil
}

// ConversationCreate creates a conversation
func (c *ControllerV1) ConversationCreate(ctx context.Context, req *v1.ConversationCreateReq) (res *v1.ConversationCreateRes, err error) {
	g.Log().Infof(ctx, "ConversationCreate request - ConversationID: %q", req.ConversationID)

	conv, err := c.manager.CreateConversation(ctx, req.ConversationID, req.Title)
	if err != nil {
		return nil, err
	}
	return &v1.ConversationCreateRes{
		ConversationID: conv.ConversationID,
		Title:          conv.Title,
		CreatedAt:      conv.CreatedAt,
		Message:        "Conversation created successfully",
	}, nil
}

// ConversationGet returns conversation metadata
func (c *ControllerV1) ConversationGet(ctx context.Context, req *v1.ConversationGetReq) (res *v1.ConversationGetRes, err error) {
	conv, err := c.manager.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	return &v1.ConversationGetRes{Conversation: conv}, nil
}

// ConversationDelete deletes a conversation and its messages
func (c *ControllerV1) ConversationDelete(ctx context.Context, req *v1.ConversationDeleteReq) (res *v1.ConversationDeleteRes, err error) {
	g.Log().Infof(ctx, "ConversationDelete request - ConversationID: %s", req.ConversationID)

	if err = c.manager.DeleteConversation(ctx, req.ConversationID); err != nil {
		return nil, err
	}
	return &v1.ConversationDeleteRes{Message: "Conversation deleted successfully"}, nil
}
