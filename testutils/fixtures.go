package testutils

import (
	"time"

	"github.com/tech-arch1tect/gymportal/config"
)

const TestSecret = "9f8e7d6c5b4a39281706f5e4d3c2b1a0"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test Portal",
			URL:  "http://localhost:8080",
			Env:  "test",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Portal: config.PortalConfig{
			SecretKey:       TestSecret,
			PINCooldown:     2 * time.Minute,
			SessionDuration: 7 * 24 * time.Hour,
			CookieName:      "member_portal_session",
		},
		RateLimit: config.RateLimitConfig{
			Store:          "memory",
			SignInEnabled:  true,
			SignInAttempts: 5,
			SignInPeriod:   15 * time.Minute,
		},
	}
}

var TestMembers = struct {
	Jane struct {
		Email    string
		FullName string
	}
	Sam struct {
		Email    string
		FullName string
	}
}{
	Jane: struct {
		Email    string
		FullName string
	}{
		Email:    "jane@example.com",
		FullName: "Jane Doe",
	},
	Sam: struct {
		Email    string
		FullName string
	}{
		Email:    "sam@example.com",
		FullName: "Sam Smith",
	},
}
