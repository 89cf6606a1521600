package cmd

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
	"github.com/gogf/gf/v2/os/gcmd"

	"github.com/NikGor/archie-backend/core/config"
	"github.com/NikGor/archie-backend/internal/controller/archie"
	"github.com/NikGor/archie-backend/internal/logic/conversation"
	"github.com/NikGor/archie-backend/internal/storage"
)

var (
	Main = gcmd.Command{
		Name:  "main",
		Usage: "main",
		Brief: "start http server",
		Func: func(ctx context.Context, parser *gcmd.Parser) (err error) {
			g.Log().Info(ctx, "Validating application configuration...")
			if err = config.ValidateConfiguration(ctx); err != nil {
				g.Log().Errorf(ctx, "Configuration validation failed:\n%v", err)
				return err
			}

			backend, err := NewBackend(ctx, config.LoadStorageConfig(ctx))
			if err != nil {
				g.Log().Errorf(ctx, "Storage initialization failed: %v", err)
				return err
			}
			engine := storage.NewEngine(backend)
			defer func() {
				if closeErr := engine.Close(); closeErr != nil {
					g.Log().Errorf(ctx, "failed to close %s store: %v", backend.Name(), closeErr)
				}
			}()
			g.Log().Infof(ctx, "✓ Storage backend %s ready", backend.Name())

			s := g.Server()
			BindRoutes(s, engine)
			s.Run()
			return nil
		},
	}
)

// BindRoutes registers the conversation API on s
func BindRoutes(s *ghttp.Server, store conversation.Store) {
	manager := conversation.NewManager(store)
	s.Group("/", func(group *ghttp.RouterGroup) {
		group.Middleware(MiddlewareHandlerResponse, ghttp.MiddlewareCORS)
		group.Bind(
			archie.NewV1(manager),
		)
	})
}
