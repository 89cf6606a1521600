package gorm

import (
	"context"

	"github.com/gogf/gf/v2/os/glog"
	"gorm.io/gorm"
)

// Migrate 自动迁移会话表和消息表
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&Conversation{},
		&Message{},
	)
	if err != nil {
		glog.Error(ctx, "database migration failed:", err)
		return err
	}
	glog.Info(ctx, "database migration succeeded")
	return nil
}
