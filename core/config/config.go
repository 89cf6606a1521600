package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/genv"
)

const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendGorm   = "gorm"

	DefaultSQLitePath = "data/archie.db"
	DefaultBoltPath   = "data/archie.bolt"
)

// StorageConfig 存储后端配置
type StorageConfig struct {
	Backend     string // sqlite, bolt or gorm
	Path        string // database file of the embedded backends
	DatabaseURL string // gorm connection URL, overrides database.default when set
}

// LoadStorageConfig reads storage.* from config.yaml. Each embedded backend has
// its own storage.<backend>.path. STORAGE_BACKEND, DATABASE_PATH and
// DATABASE_URL take precedence over the file.
func LoadStorageConfig(ctx context.Context) *StorageConfig {
	cfg := &StorageConfig{
		Backend: g.Cfg().MustGet(ctx, "storage.backend", BackendSQLite).String(),
	}
	if v := genv.Get("STORAGE_BACKEND").String(); v != "" {
		cfg.Backend = v
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.DatabaseURL = genv.Get("DATABASE_URL").String()

	switch cfg.Backend {
	case BackendSQLite:
		cfg.Path = g.Cfg().MustGet(ctx, pathKey(BackendSQLite), DefaultSQLitePath).String()
	case BackendBolt:
		cfg.Path = g.Cfg().MustGet(ctx, pathKey(BackendBolt), DefaultBoltPath).String()
	}
	if v := genv.Get("DATABASE_PATH").String(); v != "" {
		cfg.Path = v
	}
	return cfg
}

func pathKey(backend string) string {
	return "storage." + backend + ".path"
}

// ValidateConfiguration validates all required configuration items
func ValidateConfiguration(ctx context.Context) error {
	var missingConfigs []string
	var warnings []string

	storage := LoadStorageConfig(ctx)
	switch storage.Backend {
	case BackendSQLite, BackendBolt:
		key := pathKey(storage.Backend)
		if g.Cfg().MustGet(ctx, key, "").String() == "" && genv.Get("DATABASE_PATH").String() == "" {
			warnings = append(warnings, fmt.Sprintf("%s is not set, using %s", key, storage.Path))
		}
	case BackendGorm:
		// 设置了 DATABASE_URL 时不再需要单独的连接配置
		if storage.DatabaseURL == "" {
			for _, key := range []string{
				"database.default.type",
				"database.default.host",
				"database.default.port",
				"database.default.user",
				"database.default.name",
			} {
				if g.Cfg().MustGet(ctx, key, "").String() == "" {
					missingConfigs = append(missingConfigs, key)
				}
			}
		}
		if g.Cfg().MustGet(ctx, "storage.pool.maxOpen", 0).Int() == 0 {
			warnings = append(warnings, "storage.pool is not set, using defaults")
		}
	default:
		return fmt.Errorf("unsupported storage.backend %q, expected one of: %s, %s, %s",
			storage.Backend, BackendSQLite, BackendBolt, BackendGorm)
	}

	if g.Cfg().MustGet(ctx, "server.address", "").String() == "" {
		warnings = append(warnings, "server.address is not set")
	}

	if len(warnings) > 0 {
		g.Log().Warningf(ctx, "Configuration warnings:\n- %s", strings.Join(warnings, "\n- "))
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configuration items:\n- %s\n\nPlease check your config.yaml file and ensure all required settings are properly configured", strings.Join(missingConfigs, "\n- "))
	}

	g.Log().Infof(ctx, "✓ Storage backend %s configured", storage.Backend)
	return nil
}
