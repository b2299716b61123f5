package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const portalPINTemplate = "portal_pin"

//go:embed templates/*.html templates/*.txt
var defaultTemplates embed.FS

// Client is the part of *mail.Client the service uses.
type Client interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// PortalPIN is one PIN notification. PIN is the plaintext code.
type PortalPIN struct {
	To         string
	PIN        string
	MemberName string
	GymName    string
	IsNewPIN   bool
}

// PINSender delivers portal PIN notifications.
type PINSender interface {
	SendPortalPIN(ctx context.Context, msg PortalPIN) error
}

type Service struct {
	config        *config.MailConfig
	client        Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	client, err := newSMTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewServiceWithClient(cfg, logger, client)
}

func NewServiceWithClient(cfg *config.MailConfig, logger *logging.Service, client Client) (*Service, error) {
	if cfg.FromAddress == "" {
		if logger != nil {
			logger.Error("mail service initialization failed: FROM_ADDRESS is required")
		}
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		if logger != nil {
			logger.Error("failed to load mail templates", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	if logger != nil {
		logger.Info("mail service initialized successfully")
	}
	return service, nil
}

func newSMTPClient(cfg *config.MailConfig, logger *logging.Service) (*mail.Client, error) {
	if logger != nil {
		logger.Info("initializing mail service",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("encryption", cfg.Encryption),
			zap.String("from_address", cfg.FromAddress))
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client",
				zap.Error(err),
				zap.String("host", cfg.Host),
				zap.Int("port", cfg.Port))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return client, nil
}

// loadTemplates parses the embedded defaults, then lets files in
// TemplatesDir override them by name.
func (s *Service) loadTemplates() error {
	var err error
	s.htmlTemplates, err = htmlTemplate.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse embedded HTML templates: %w", err)
	}
	s.textTemplates, err = textTemplate.ParseFS(defaultTemplates, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("failed to parse embedded text templates: %w", err)
	}

	if s.config.TemplatesDir == "" {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("loading mail templates", zap.String("templates_dir", s.config.TemplatesDir))
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	if matches, _ := filepath.Glob(htmlPattern); len(matches) > 0 {
		if _, err := s.htmlTemplates.ParseFiles(matches...); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}

	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")
	if matches, _ := filepath.Glob(textPattern); len(matches) > 0 {
		if _, err := s.textTemplates.ParseFiles(matches...); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("mail templates loaded successfully",
			zap.Int("html_templates", len(s.htmlTemplates.Templates())),
			zap.Int("text_templates", len(s.textTemplates.Templates())))
	}
	return nil
}

func (s *Service) NewMessage() (*mail.Msg, error) {
	message := mail.NewMsg()

	var err error
	if s.config.FromName != "" {
		err = message.FromFormat(s.config.FromName, s.config.FromAddress)
	} else {
		err = message.From(s.config.FromAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	return message, nil
}

func (s *Service) Send(ctx context.Context, message *mail.Msg) error {
	startTime := time.Now()
	err := s.client.DialAndSendWithContext(ctx, message)
	duration := time.Since(startTime)

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", duration))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("email sent successfully",
			zap.Duration("send_duration", duration))
	}
	return nil
}

func (s *Service) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data any) error {
	message, err := s.NewMessage()
	if err != nil {
		return err
	}

	if err := message.To(to...); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to set TO addresses",
				zap.Error(err),
				zap.Strings("recipients", to))
		}
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)

	if err := s.renderTemplate(templateName, data, message); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to render template",
				zap.Error(err),
				zap.String("template", templateName))
		}
		return fmt.Errorf("failed to render template: %w", err)
	}

	return s.Send(ctx, message)
}

func (s *Service) SendPortalPIN(ctx context.Context, msg PortalPIN) error {
	if s.logger != nil {
		s.logger.Info("sending portal PIN email",
			zap.String("gym", msg.GymName),
			zap.Bool("new_pin", msg.IsNewPIN))
	}
	return s.SendTemplate(ctx, portalPINTemplate, []string{msg.To}, PortalPINSubject(msg), msg)
}

func PortalPINSubject(msg PortalPIN) string {
	if msg.IsNewPIN {
		return fmt.Sprintf("Welcome to the %s member portal", msg.GymName)
	}
	return fmt.Sprintf("Your new %s portal PIN", msg.GymName)
}

func (s *Service) renderTemplate(templateName string, data any, message *mail.Msg) error {
	var hasHTML bool

	if t := s.htmlTemplates.Lookup(templateName + ".html"); t != nil {
		var htmlBuf bytes.Buffer
		if err := t.Execute(&htmlBuf, data); err != nil {
			return fmt.Errorf("failed to execute HTML template: %w", err)
		}
		message.SetBodyString(mail.TypeTextHTML, htmlBuf.String())
		hasHTML = true
	}

	t := s.textTemplates.Lookup(templateName + ".txt")
	if t == nil {
		if !hasHTML {
			return fmt.Errorf("template '%s' not found", templateName)
		}
		return nil
	}

	var textBuf bytes.Buffer
	if err := t.Execute(&textBuf, data); err != nil {
		return fmt.Errorf("failed to execute text template: %w", err)
	}
	if hasHTML {
		message.AddAlternativeString(mail.TypeTextPlain, textBuf.String())
	} else {
		message.SetBodyString(mail.TypeTextPlain, textBuf.String())
	}
	return nil
}
