package ratelimit

import (
	"github.com/tech-arch1tect/gymportal/config"
	"go.uber.org/fx"
)

func ProvideRateLimitStore(cfg *config.Config) Store {
	return NewStore(&cfg.RateLimit)
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)
