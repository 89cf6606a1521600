package cmd

import (
	"context"
	"fmt"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/NikGor/archie-backend/core/config"
	"github.com/NikGor/archie-backend/internal/dao"
	"github.com/NikGor/archie-backend/internal/storage"
	"github.com/NikGor/archie-backend/internal/storage/bolt"
	"github.com/NikGor/archie-backend/internal/storage/sqlite"
)

// NewBackend 按配置打开存储后端
func NewBackend(ctx context.Context, cfg *config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		g.Log().Infof(ctx, "Opening sqlite store at %s", cfg.Path)
		return sqlite.Open(ctx, cfg.Path)
	case config.BackendBolt:
		g.Log().Infof(ctx, "Opening bolt store at %s", cfg.Path)
		return bolt.Open(ctx, cfg.Path)
	case config.BackendGorm:
		dbConfig, err := databaseConfig(cfg)
		if err != nil {
			return nil, err
		}
		g.Log().Infof(ctx, "Connecting to %s database %s at %s:%s", dbConfig.Type, dbConfig.Name, dbConfig.Host, dbConfig.Port)
		return dao.Open(ctx, dbConfig, poolConfig(ctx))
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

func databaseConfig(cfg *config.StorageConfig) (*dao.DBConfig, error) {
	if cfg.DatabaseURL != "" {
		return dao.ParseDatabaseURL(cfg.DatabaseURL)
	}
	return dao.GetDBConfig(), nil
}

func poolConfig(ctx context.Context) dao.PoolConfig {
	pool := dao.DefaultPoolConfig
	if v := g.Cfg().MustGet(ctx, "storage.pool.maxIdle", 0).Int(); v > 0 {
		pool.MaxIdle = v
	}
	if v := g.Cfg().MustGet(ctx, "storage.pool.maxOpen", 0).Int(); v > 0 {
		pool.MaxOpen = v
	}
	if v := g.Cfg().MustGet(ctx, "storage.pool.maxLifetime", "").Duration(); v > 0 {
		pool.MaxLifetime = v
	}
	return pool
}
