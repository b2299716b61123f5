package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/testutils"
	"go.uber.org/fx"
)

type auditEntry struct {
	ID     uint `gorm:"primaryKey"`
	Action string
}

func createTestConfig() *config.Config {
	cfg := testutils.GetTestConfig()
	cfg.Server = config.ServerConfig{Host: "127.0.0.1", Port: "0"}
	cfg.Database.AutoMigrate = true
	cfg.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	return cfg
}

func TestNewApp(t *testing.T) {
	builder := NewApp()

	require.NotNil(t, builder)
	assert.Empty(t, builder.models)
	assert.Empty(t, builder.fxOptions)
	assert.Empty(t, builder.errors)
	assert.Nil(t, builder.config)
	assert.Nil(t, builder.mailer)
}

func TestAppBuilder_WithConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := createTestConfig()
		builder := NewApp()

		result := builder.WithConfig(cfg)

		assert.Same(t, builder, result)
		assert.Same(t, cfg, builder.config)
	})

	t.Run("nil config", func(t *testing.T) {
		builder := NewApp().WithConfig(nil)

		assert.Nil(t, builder.config)
		require.Len(t, builder.errors, 1)
		assert.Contains(t, builder.errors[0].Error(), "config cannot be nil")
	})
}

func TestAppBuilder_WithAutoConfig(t *testing.T) {
	t.Run("loads from environment", func(t *testing.T) {
		t.Setenv("PORTAL_SECRET_KEY", testutils.TestSecret)
		t.Setenv("APP_NAME", "Env Portal")

		builder := NewApp().WithAutoConfig()

		require.Empty(t, builder.errors)
		require.NotNil(t, builder.config)
		assert.Equal(t, "Env Portal", builder.config.App.Name)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("PORTAL_SECRET_KEY", "")

		builder := NewApp().WithAutoConfig()

		require.Len(t, builder.errors, 1)
		assert.Contains(t, builder.errors[0].Error(), "PORTAL_SECRET_KEY is required")
	})
}

func TestAppBuilder_WithMailer(t *testing.T) {
	t.Run("sender", func(t *testing.T) {
		mailer := &testutils.MockMailService{}
		builder := NewApp().WithMailer(mailer)

		assert.Same(t, mailer, builder.mailer)
		assert.Empty(t, builder.errors)
	})

	t.Run("nil sender", func(t *testing.T) {
		builder := NewApp().WithMailer(nil)

		require.Len(t, builder.errors, 1)
		assert.Contains(t, builder.errors[0].Error(), "mailer cannot be nil")
	})
}

func TestAppBuilder_WithModelsAndFxOptions(t *testing.T) {
	builder := NewApp().
		WithModels(&auditEntry{}).
		WithFxOptions(fx.Invoke(func() {}))

	assert.Len(t, builder.models, 1)
	assert.Len(t, builder.fxOptions, 1)
}

func TestAppBuilder_Build(t *testing.T) {
	t.Run("wires every component", func(t *testing.T) {
		app, err := NewApp().
			WithConfig(createTestConfig()).
			WithModels(&auditEntry{}).
			Build()

		require.NoError(t, err)
		require.NotNil(t, app)
		assert.NotNil(t, app.Logger())
		assert.NotNil(t, app.Portal())
		assert.NotNil(t, app.HTTPServer())
		assert.NotNil(t, app.Server())
		require.NotNil(t, app.DB())

		migrator := app.DB().Migrator()
		assert.True(t, migrator.HasTable("gyms"))
		assert.True(t, migrator.HasTable("members"))
		assert.True(t, migrator.HasTable(&auditEntry{}))
	})

	t.Run("builder errors stop the build", func(t *testing.T) {
		app, err := NewApp().WithConfig(nil).Build()

		require.Error(t, err)
		assert.Nil(t, app)
		assert.Contains(t, err.Error(), "configuration errors")
	})

	t.Run("invalid portal config", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Portal.SecretKey = "short"

		app, err := NewApp().WithConfig(cfg).Build()

		require.Error(t, err)
		assert.Nil(t, app)
		assert.Contains(t, err.Error(), "failed to build application")
	})

	t.Run("unsupported database driver", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Database.Driver = "oracle"

		_, err := NewApp().WithConfig(cfg).Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}
