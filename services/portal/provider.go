package portal

import (
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/tech-arch1tect/gymportal/services/mail"
	"github.com/tech-arch1tect/gymportal/services/metrics"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ServiceParams struct {
	fx.In

	Config  *config.Config
	DB      *gorm.DB
	Logger  *logging.Service `optional:"true"`
	Mailer  mail.PINSender   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

func ProvidePortalService(p ServiceParams) (*Service, error) {
	service, err := NewService(p.Config, p.DB, p.Logger)
	if err != nil {
		return nil, err
	}
	if p.Mailer != nil {
		service.SetMailService(p.Mailer)
	}
	service.SetMetrics(p.Metrics)
	return service, nil
}

var Module = fx.Options(
	fx.Provide(ProvidePortalService),
)
