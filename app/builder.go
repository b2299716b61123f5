package app

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/database"
	"github.com/tech-arch1tect/gymportal/handlers"
	"github.com/tech-arch1tect/gymportal/middleware/ratelimit"
	"github.com/tech-arch1tect/gymportal/server"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/tech-arch1tect/gymportal/services/mail"
	"github.com/tech-arch1tect/gymportal/services/metrics"
	"github.com/tech-arch1tect/gymportal/services/portal"
	"go.uber.org/fx"
)

type AppBuilder struct {
	config    *config.Config
	models    []any
	mailer    mail.PINSender
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels migrates extra models alongside the portal tables.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

// WithMailer replaces the configured PIN sender.
func (b *AppBuilder) WithMailer(sender mail.PINSender) *AppBuilder {
	if sender == nil {
		b.addError("mailer cannot be nil")
		return b
	}
	b.mailer = sender
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	app := &App{config: b.config}

	options := b.buildFxOptions()
	options = append(options, fx.Populate(&app.logger, &app.db, &app.server, &app.portal))

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}
	return nil
}

func (b *AppBuilder) buildFxOptions() []fx.Option {
	models := append(portal.Models(), b.models...)

	options := []fx.Option{
		fx.NopLogger,
		config.NewProvider(b.config),
		fx.Supply(database.WithModels(models...)),
		logging.Module,
		database.Module,
		metrics.Module,
		ratelimit.Module,
		b.mailOption(),
		portal.Module,
		server.NewProvider(),
		handlers.Module,
		fx.Invoke(registerMetrics),
	}

	return append(options, b.fxOptions...)
}

func (b *AppBuilder) mailOption() fx.Option {
	if b.mailer == nil {
		return mail.Module
	}
	sender := b.mailer
	return fx.Provide(func() mail.PINSender { return sender })
}

func registerMetrics(srv *server.Server, cfg *config.Config, m *metrics.Metrics) {
	if m == nil {
		return
	}
	srv.Use(m.Middleware(cfg.Metrics.Path))
	srv.Get(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
}
