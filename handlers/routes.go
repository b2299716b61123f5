package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/middleware/memberauth"
	"github.com/tech-arch1tect/gymportal/middleware/ratelimit"
	"github.com/tech-arch1tect/gymportal/openapi"
	"github.com/tech-arch1tect/gymportal/services/logging"
)

const (
	PortalPrefix = "/api/portal"

	msgTooManySignIns = "Too many sign-in attempts. Please try again later."
)

type RouteConfig struct {
	Handler   *PortalHandler
	Auth      memberauth.Authenticator
	RateLimit config.RateLimitConfig
	Store     ratelimit.Store
	Docs      *openapi.OpenAPI
	Logger    *logging.Service
}

func RegisterPortalRoutes(e *echo.Echo, rc RouteConfig) {
	h := rc.Handler
	g := e.Group(PortalPrefix)

	g.POST("/sign-out", h.SignOut)

	g.GET("/:slug", h.GetGym)
	g.POST("/:slug/pin-status", h.PINStatus)
	g.POST("/:slug/request-access", h.RequestAccess)
	g.POST("/:slug/sign-in", h.SignIn, signInLimiter(rc)...)
	g.GET("/:slug/session", h.Session, memberauth.RequireMember(rc.Auth))
	g.GET("/:slug/me", h.Me)

	if rc.Docs != nil {
		e.GET("/api/openapi.json", rc.Docs.JSONHandler())
		e.GET("/api/openapi.yaml", rc.Docs.YAMLHandler())
	}
}

func signInLimiter(rc RouteConfig) []echo.MiddlewareFunc {
	if !rc.RateLimit.SignInEnabled {
		return nil
	}
	return []echo.MiddlewareFunc{ratelimit.Middleware(&ratelimit.Config{
		Store:        rc.Store,
		Rate:         rc.RateLimit.SignInAttempts,
		Period:       rc.RateLimit.SignInPeriod,
		CountMode:    config.CountFailures,
		KeyGenerator: ratelimit.SignInKeyGenerator,
		OnLimitReached: func(c echo.Context) error {
			return c.JSON(http.StatusTooManyRequests, Response{Error: msgTooManySignIns})
		},
		Logger: rc.Logger,
	})}
}
