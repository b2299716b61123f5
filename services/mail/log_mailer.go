package mail

import (
	"context"

	"github.com/tech-arch1tect/gymportal/services/logging"
	"go.uber.org/zap"
)

// LogMailer writes PIN emails to the log instead of sending them. It is only
// wired when mail is disabled in development.
type LogMailer struct {
	logger *logging.Service
}

func NewLogMailer(logger *logging.Service) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) SendPortalPIN(ctx context.Context, msg PortalPIN) error {
	if l.logger != nil {
		l.logger.Warn("DEVELOPMENT MODE: portal PIN email not sent",
			zap.String("to", msg.To),
			zap.String("subject", PortalPINSubject(msg)),
			zap.String("member", msg.MemberName),
			zap.String("pin", msg.PIN))
	}
	return nil
}
