package archie

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/api/archie/v1"
	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/logic/conversation"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// MessageList lists the messages of a conversation
func (c *ControllerV1) MessageList(ctx context.Context, req *v1.MessageListReq) (res *v1.MessageListRes, err error) {
	g.Log().Infof(ctx, "MessageList request - ConversationID: %q, Limit: %d", req.ConversationID, req.Limit)

	messages, err := c.manager.ListMessages(ctx, req.ConversationID, req.Limit)
	if err != nil {
		return nil, err
	}
	list := v1.MessageListRes(messages)
	return &list, nil
}

// MessageCreate stores a message
func (c *ControllerV1) MessageCreate(ctx context.Context, req *v1.MessageCreateReq) (res *v1.MessageCreateRes, err error) {
	g.Log().Infof(ctx, "MessageCreate request - ConversationID: %q, Role: %s", req.ConversationID, req.Role)

	in := conversation.CreateMessageInput{
		ConversationID: req.ConversationID,
		Role:           entity.Role(req.Role),
		Text:           req.Text,
		TextFormat:     entity.TextFormat(req.TextFormat),
	}
	if req.Metadata != nil {
		metadata, ok := req.Metadata.(map[string]interface{})
		if !ok {
			g.Log().Warningf(ctx, "rejected metadata of type %T", req.Metadata)
			return nil, errors.New(errors.ErrInvalidParameter, "metadata must be a JSON object")
		}
		if in.Metadata, err = sonic.Marshal(metadata); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidParameter, err, "metadata must be a JSON object")
		}
	}

	msg, err := c.manager.CreateMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	return &v1.MessageCreateRes{
		MessageID:      msg.MessageID,
		ConversationID: msg.ConversationID,
		CreatedAt:      msg.CreatedAt,
		Message:        "Message created successfully",
	}, nil
}
