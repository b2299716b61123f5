package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"go.uber.org/zap"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
}

// Middleware applies a fixed-window limit per key. In CountFailures and
// CountSuccess modes a slot is reserved before the handler runs and handed
// back afterwards when the response does not match the mode, so concurrent
// requests cannot overshoot the limit.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}
	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}
	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.KeyGenerator(c)

			resetTime := time.Now().Add(cfg.Period)
			if _, existing, exists := cfg.Store.Get(key); exists {
				resetTime = existing
			}

			count := cfg.Store.Increment(key, resetTime)
			if count > cfg.Rate {
				cfg.Store.Decrement(key)
				setHeaders(c, cfg.Rate, 0, resetTime)
				if cfg.Logger != nil {
					cfg.Logger.Warn("rate limit reached",
						zap.String("key", key),
						zap.Int("limit", cfg.Rate))
				}
				return cfg.OnLimitReached(c)
			}

			setHeaders(c, cfg.Rate, cfg.Rate-count, resetTime)

			err := next(c)

			if cfg.CountMode != config.CountAll {
				status := responseStatus(c, err)
				counted := false
				switch cfg.CountMode {
				case config.CountFailures:
					counted = status >= http.StatusBadRequest
				case config.CountSuccess:
					counted = status < http.StatusBadRequest
				}
				if !counted {
					cfg.Store.Decrement(key)
				}
			}

			return err
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

// responseStatus accounts for handlers that return an *echo.HTTPError
// instead of writing the response themselves.
func responseStatus(c echo.Context, err error) int {
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code
		}
		if !c.Response().Committed {
			return http.StatusInternalServerError
		}
	}
	return c.Response().Status
}

func DefaultKeyGenerator(c echo.Context) string {
	return "rate_limit:" + clientIP(c)
}

// SignInKeyGenerator scopes the counter to the client and the gym slug in
// the route, so guessing PINs at one gym does not lock members out of others.
func SignInKeyGenerator(c echo.Context) string {
	return "sign_in:" + clientIP(c) + ":" + c.Param("slug")
}

func clientIP(c echo.Context) string {
	realIP := c.RealIP()
	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}
	return realIP
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
}

func NewStore(rateLimitConfig *config.RateLimitConfig) Store {
	switch rateLimitConfig.Store {
	case "memory":
		fallthrough
	default:
		return NewMemoryStore()
	}
}
