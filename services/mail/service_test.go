package mail

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockMailClient struct {
	sendFunc func(msg *mail.Msg) error
	messages []*mail.Msg
}

func (m *MockMailClient) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	m.messages = append(m.messages, messages...)
	if m.sendFunc != nil {
		for _, msg := range messages {
			if err := m.sendFunc(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func getTestMailConfig() *config.MailConfig {
	return &config.MailConfig{
		Enabled:     true,
		Host:        "localhost",
		Port:        587,
		Encryption:  "tls",
		FromAddress: "portal@example.com",
		FromName:    "Downtown Fit",
	}
}

func renderMessage(t *testing.T, msg *mail.Msg) string {
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestNewServiceWithClient(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		cfg := getTestMailConfig()
		client := &MockMailClient{}

		service, err := NewServiceWithClient(cfg, nil, client)

		require.NoError(t, err)
		assert.Equal(t, cfg, service.config)
		assert.Equal(t, client, service.client)
		assert.NotNil(t, service.htmlTemplates.Lookup("portal_pin.html"))
		assert.NotNil(t, service.textTemplates.Lookup("portal_pin.txt"))
	})

	t.Run("missing from address", func(t *testing.T) {
		cfg := getTestMailConfig()
		cfg.FromAddress = ""

		service, err := NewServiceWithClient(cfg, nil, &MockMailClient{})

		require.Error(t, err)
		assert.Nil(t, service)
		assert.Contains(t, err.Error(), "MAIL_FROM_ADDRESS is required")
	})

	t.Run("real SMTP client is created lazily", func(t *testing.T) {
		service, err := NewService(getTestMailConfig(), nil)

		require.NoError(t, err)
		assert.NotNil(t, service.client)
	})
}

func TestService_loadTemplates(t *testing.T) {
	t.Run("templates directory overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "portal_pin.txt"), []byte("Custom PIN {{.PIN}}"), 0o644))

		cfg := getTestMailConfig()
		cfg.TemplatesDir = dir
		client := &MockMailClient{}
		service, err := NewServiceWithClient(cfg, nil, client)
		require.NoError(t, err)

		err = service.SendPortalPIN(context.Background(), PortalPIN{To: "jane@example.com", PIN: "4821", GymName: "Downtown Fit"})
		require.NoError(t, err)

		require.Len(t, client.messages, 1)
		assert.Contains(t, renderMessage(t, client.messages[0]), "Custom PIN 4821")
	})

	t.Run("missing directory keeps defaults", func(t *testing.T) {
		cfg := getTestMailConfig()
		cfg.TemplatesDir = "/non/existent/path"

		service, err := NewServiceWithClient(cfg, nil, &MockMailClient{})

		require.NoError(t, err)
		assert.NotNil(t, service.textTemplates.Lookup("portal_pin.txt"))
	})

	t.Run("broken template fails", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.html"), []byte("{{.PIN"), 0o644))

		cfg := getTestMailConfig()
		cfg.TemplatesDir = dir
		_, err := NewServiceWithClient(cfg, nil, &MockMailClient{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load mail templates")
	})
}

func TestService_SendPortalPIN(t *testing.T) {
	t.Run("first PIN uses welcome wording", func(t *testing.T) {
		client := &MockMailClient{}
		service, err := NewServiceWithClient(getTestMailConfig(), nil, client)
		require.NoError(t, err)

		err = service.SendPortalPIN(context.Background(), PortalPIN{
			To:         "jane@example.com",
			PIN:        "4821",
			MemberName: "Jane Doe",
			GymName:    "Downtown Fit",
			IsNewPIN:   true,
		})
		require.NoError(t, err)

		require.Len(t, client.messages, 1)
		msg := client.messages[0]
		assert.Equal(t, []string{"<jane@example.com>"}, msg.GetToString())
		assert.Equal(t, []string{"Welcome to the Downtown Fit member portal"}, msg.GetGenHeader(mail.HeaderSubject))

		body := renderMessage(t, msg)
		assert.Contains(t, body, "4821")
		assert.Contains(t, body, "Jane Doe")
	})

	t.Run("reissue uses new PIN wording", func(t *testing.T) {
		client := &MockMailClient{}
		service, err := NewServiceWithClient(getTestMailConfig(), nil, client)
		require.NoError(t, err)

		err = service.SendPortalPIN(context.Background(), PortalPIN{
			To:       "jane@example.com",
			PIN:      "0456",
			GymName:  "Downtown Fit",
			IsNewPIN: false,
		})
		require.NoError(t, err)

		require.Len(t, client.messages, 1)
		assert.Equal(t, []string{"Your new Downtown Fit portal PIN"}, client.messages[0].GetGenHeader(mail.HeaderSubject))
		assert.Contains(t, renderMessage(t, client.messages[0]), "0456")
	})

	t.Run("client failure is returned", func(t *testing.T) {
		client := &MockMailClient{sendFunc: func(*mail.Msg) error { return errors.New("smtp unavailable") }}
		service, err := NewServiceWithClient(getTestMailConfig(), nil, client)
		require.NoError(t, err)

		err = service.SendPortalPIN(context.Background(), PortalPIN{To: "jane@example.com", PIN: "4821", GymName: "Downtown Fit"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "smtp unavailable")
	})

	t.Run("invalid recipient", func(t *testing.T) {
		client := &MockMailClient{}
		service, err := NewServiceWithClient(getTestMailConfig(), nil, client)
		require.NoError(t, err)

		err = service.SendPortalPIN(context.Background(), PortalPIN{To: "not an address", PIN: "4821"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to set TO addresses")
		assert.Empty(t, client.messages)
	})
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mailer := NewLogMailer(logging.NewWithLogger(zap.New(core)))

	err := mailer.SendPortalPIN(context.Background(), PortalPIN{To: "jane@example.com", PIN: "4821", GymName: "Downtown Fit", IsNewPIN: true})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "4821", entry.ContextMap()["pin"])
	assert.Equal(t, "Welcome to the Downtown Fit member portal", entry.ContextMap()["subject"])
}

func TestProvidePINSender(t *testing.T) {
	t.Run("enabled returns SMTP service", func(t *testing.T) {
		cfg := &config.Config{Mail: *getTestMailConfig()}

		sender, err := ProvidePINSender(cfg, nil)

		require.NoError(t, err)
		assert.IsType(t, &Service{}, sender)
	})

	t.Run("disabled in development logs", func(t *testing.T) {
		cfg := &config.Config{App: config.AppConfig{Env: "development"}}

		sender, err := ProvidePINSender(cfg, nil)

		require.NoError(t, err)
		assert.IsType(t, &LogMailer{}, sender)
	})

	t.Run("disabled in production returns nil", func(t *testing.T) {
		cfg := &config.Config{App: config.AppConfig{Env: "production"}}

		sender, err := ProvidePINSender(cfg, nil)

		require.NoError(t, err)
		assert.Nil(t, sender)
	})
}
