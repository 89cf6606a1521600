package archie

import (
	"github.com/NikGor/archie-backend/api/archie"
	"github.com/NikGor/archie-backend/internal/logic/conversation"
)

type ControllerV1 struct {
	manager *conversation.Manager
}

func NewV1(manager *conversation.Manager) archie.IArchieV1 {
	return &ControllerV1{manager: manager}
}
