package bootstrap

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
	"github.com/wolfman30/calendar-booking-agent/internal/notify"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// BuildBookingNotifier picks the confirmation email transport and reports
// which one it chose. Anything that cannot be built degrades to the stub
// sender, which only logs.
func BuildBookingNotifier(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (*notify.BookingNotifier, string) {
	if logger == nil {
		logger = logging.Default()
	}
	provider := "stub"
	if cfg != nil {
		provider = cfg.EmailProvider
	}

	var sender notify.EmailSender
	switch provider {
	case "sendgrid":
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			sender = sg
		}
	case "ses":
		if loadAWS != nil {
			awsCfg, err := loadAWS(ctx)
			if err != nil {
				logger.Warn("failed to load aws config for ses", "error", err)
			} else if ses := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail:        cfg.SESFromEmail,
				FromName:         cfg.SendGridFromName,
				ConfigurationSet: cfg.SESConfigSet,
			}, logger); ses != nil {
				sender = ses
			}
		}
	}
	if sender == nil {
		provider = "stub"
		sender = notify.NewStubEmailSender(logger)
	}
	logger.Info("booking emails", "provider", provider)
	return notify.NewBookingNotifier(sender, logger), provider
}
