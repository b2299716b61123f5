package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	Portal    PortalConfig    `envPrefix:"PORTAL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"Gym Portal"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
	Env  string `env:"ENV" envDefault:"development"`
}

// IsProduction reports whether cookies should be marked Secure.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Host           string   `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"gymportal.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type MailConfig struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"tls"`
	FromAddress  string `env:"FROM_ADDRESS"`
	FromName     string `env:"FROM_NAME"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

type PortalConfig struct {
	SecretKey       string        `env:"SECRET_KEY"`
	PINCooldown     time.Duration `env:"PIN_COOLDOWN" envDefault:"2m"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"168h"`
	CookieName      string        `env:"COOKIE_NAME" envDefault:"member_portal_session"`
	AtomicCooldown  bool          `env:"ATOMIC_COOLDOWN" envDefault:"false"`
	GymCacheTTL     time.Duration `env:"GYM_CACHE_TTL" envDefault:"0s"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type RateLimitConfig struct {
	Store          string        `env:"STORE" envDefault:"memory"`
	SignInEnabled  bool          `env:"SIGN_IN_ENABLED" envDefault:"true"`
	SignInAttempts int           `env:"SIGN_IN_ATTEMPTS" envDefault:"10"`
	SignInPeriod   time.Duration `env:"SIGN_IN_PERIOD" envDefault:"15m"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}
	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		if err := ValidatePortalConfig(&c.Portal); err != nil {
			return fmt.Errorf("portal config validation failed: %w", err)
		}
	}
	return nil
}

var weakSecretPatterns = []string{"changeme", "password", "default", "example"}

func ValidatePortalConfig(cfg *PortalConfig) error {
	if cfg.SecretKey == "" {
		return errors.New("PORTAL_SECRET_KEY is required")
	}
	if len(cfg.SecretKey) < 16 {
		return errors.New("portal secret key must be at least 16 characters long")
	}
	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return errors.New("portal secret key contains weak patterns")
		}
	}
	if cfg.PINCooldown < 0 {
		return errors.New("PIN cooldown cannot be negative")
	}
	if cfg.SessionDuration <= 0 {
		return errors.New("session duration must be positive")
	}
	if cfg.CookieName == "" {
		return errors.New("session cookie name is required")
	}
	return nil
}
