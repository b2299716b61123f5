package handlers

import (
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/middleware/ratelimit"
	"github.com/tech-arch1tect/gymportal/openapi"
	"github.com/tech-arch1tect/gymportal/server"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/tech-arch1tect/gymportal/services/portal"
	"go.uber.org/fx"
)

type RouteParams struct {
	fx.In

	Server  *server.Server
	Config  *config.Config
	Service *portal.Service
	Handler *PortalHandler
	Store   ratelimit.Store
	Docs    *openapi.OpenAPI
	Logger  *logging.Service `optional:"true"`
}

func ProvidePortalHandler(service *portal.Service, logger *logging.Service) *PortalHandler {
	return NewPortalHandler(service, logger)
}

func registerRoutes(p RouteParams) {
	RegisterPortalRoutes(p.Server.Echo(), RouteConfig{
		Handler:   p.Handler,
		Auth:      p.Service,
		RateLimit: p.Config.RateLimit,
		Store:     p.Store,
		Docs:      p.Docs,
		Logger:    p.Logger,
	})
}

var Module = fx.Options(
	fx.Provide(ProvidePortalHandler, APIDocs),
	fx.Invoke(registerRoutes),
)
