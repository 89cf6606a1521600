package config

import (
	"context"
	"testing"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gcfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfig(t *testing.T, content string) {
	t.Helper()
	adapter, err := gcfg.NewAdapterContent(content)
	require.NoError(t, err)
	previous := g.Cfg().GetAdapter()
	g.Cfg().SetAdapter(adapter)
	t.Cleanup(func() { g.Cfg().SetAdapter(previous) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"STORAGE_BACKEND", "DATABASE_PATH", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadStorageConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, `server: {address: ":8080"}`)
		cfg := LoadStorageConfig(ctx)
		assert.Equal(t, BackendSQLite, cfg.Backend)
		assert.Equal(t, DefaultSQLitePath, cfg.Path)
		assert.Empty(t, cfg.DatabaseURL)
	})

	t.Run("file", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: Bolt\n  bolt:\n    path: /var/lib/archie/chat.bolt\n")
		cfg := LoadStorageConfig(ctx)
		assert.Equal(t, BackendBolt, cfg.Backend)
		assert.Equal(t, "/var/lib/archie/chat.bolt", cfg.Path)
	})

	t.Run("bolt default path", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: bolt\n")
		assert.Equal(t, DefaultBoltPath, LoadStorageConfig(ctx).Path)
	})

	t.Run("backend switched by environment", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: sqlite\n  sqlite:\n    path: data/archie.db\n")
		t.Setenv("STORAGE_BACKEND", "bolt")
		cfg := LoadStorageConfig(ctx)
		assert.Equal(t, BackendBolt, cfg.Backend)
		assert.Equal(t, DefaultBoltPath, cfg.Path)
	})

	t.Run("environment wins", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: sqlite\n  sqlite:\n    path: data/file.db\n")
		t.Setenv("STORAGE_BACKEND", "gorm")
		t.Setenv("DATABASE_PATH", "/tmp/override.db")
		t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/archie")
		cfg := LoadStorageConfig(ctx)
		assert.Equal(t, BackendGorm, cfg.Backend)
		assert.Equal(t, "/tmp/override.db", cfg.Path)
		assert.Equal(t, "postgres://u:p@db:5432/archie", cfg.DatabaseURL)
	})
}

func TestValidateConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("embedded backend", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "server:\n  address: \":8080\"\nstorage:\n  backend: sqlite\n  sqlite:\n    path: data/archie.db\n")
		assert.NoError(t, ValidateConfiguration(ctx))
	})

	t.Run("unknown backend", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: redis\n")
		err := ValidateConfiguration(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"redis"`)
	})

	t.Run("gorm without database", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: gorm\ndatabase:\n  default:\n    type: pgsql\n    host: localhost\n")
		err := ValidateConfiguration(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.default.port")
		assert.Contains(t, err.Error(), "database.default.name")
		assert.NotContains(t, err.Error(), "database.default.host")
	})

	t.Run("gorm with url", func(t *testing.T) {
		clearEnv(t)
		useConfig(t, "storage:\n  backend: gorm\n")
		t.Setenv("DATABASE_URL", "mysql://u:p@db:3306/archie")
		assert.NoError(t, ValidateConfiguration(ctx))
	})
}
