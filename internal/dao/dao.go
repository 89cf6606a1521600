// Package dao relational storage backend on gorm (PostgreSQL or MySQL)
package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	gormModel "github.com/NikGor/archie-backend/internal/model/gorm"
)

// BackendName name reported by Store.Name
const BackendName = "gorm"

// Store 基于 gorm 的 storage.Backend 实现
type Store struct {
	db *gorm.DB
}

// New 包装已打开的 gorm 连接并迁移表结构
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := gormModel.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to migrate database tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Name implements storage.Backend
func (s *Store) Name() string {
	return BackendName
}

// DB returns the gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
