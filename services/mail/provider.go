package mail

import (
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"go.uber.org/fx"
)

// ProvidePINSender picks the SMTP service when mail is enabled, the log
// mailer in development, and nil otherwise.
func ProvidePINSender(cfg *config.Config, logger *logging.Service) (PINSender, error) {
	if cfg.Mail.Enabled {
		return NewService(&cfg.Mail, logger)
	}
	if cfg.App.Env == "development" {
		return NewLogMailer(logger), nil
	}
	if logger != nil {
		logger.Warn("mail is disabled, portal PIN emails will not be delivered")
	}
	return nil, nil
}

var Module = fx.Options(
	fx.Provide(ProvidePINSender),
)
