package archie

import (
	"context"

	"github.com/NikGor/archie-backend/api/archie/v1"
)

type IArchieV1 interface {
	ConversationList(ctx context.Context, req *v1.ConversationListReq) (res *v1.ConversationListRes, err error)
	ConversationCreate(ctx context.Context, req *v1.ConversationCreateReq) (res *v1.ConversationCreateRes, err error)
	ConversationGet(ctx context.Context, req *v1.ConversationGetReq) (res *v1.ConversationGetRes, err error)
	ConversationDelete(ctx context.Context, req *v1.ConversationDeleteReq) (res *v1.ConversationDeleteRes, err error)
	MessageList(ctx context.Context, req *v1.MessageListReq) (res *v1.MessageListRes, err error)
	MessageCreate(ctx context.Context, req *v1.MessageCreateReq) (res *v1.MessageCreateRes, err error)
	ChatHistory(ctx context.Context, req *v1.ChatHistoryReq) (res *v1.ChatHistoryRes, err error)
}
