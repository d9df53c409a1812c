package jobs

import (
	"context"
	"fmt"

	awsclient "parking-jobs/internal/common/aws"
	"parking-jobs/internal/common/config"
	httpclient "parking-jobs/internal/common/http"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/mqtt"
	"parking-jobs/internal/common/sms"
	transactioncloser "parking-jobs/internal/workers/charging/transaction-closer"
)

// NewSender picks the SMS transport. Dev mode always logs instead of sending.
func NewSender(ctx context.Context, cfg *config.Config, log logger.Logger) (sms.Sender, error) {
	if cfg.Dev.Enabled {
		return sms.NewMockSender(log, cfg.SMS.CountryCode, cfg.Dev.TestMobile), nil
	}

	switch cfg.SMS.Provider {
	case "sns":
		client, err := awsclient.NewSNSClient(ctx, cfg.SMS.AWSRegion)
		if err != nil {
			return nil, err
		}
		return awsclient.NewSNSSender(client, cfg.SMS.CountryCode, cfg.SMS.SenderID), nil
	case "onewaysms":
		return sms.NewOneWayGateway(cfg.SMS, httpclient.NewClient(config.GetDuration(cfg.SMS.Timeout))), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMS.Provider)
	}
}

func NewMailer(ctx context.Context, cfg *config.Config) (*awsclient.Mailer, error) {
	client, err := awsclient.NewSESClient(ctx, cfg.Email.AWSRegion)
	if err != nil {
		return nil, err
	}
	return awsclient.NewMailer(client, cfg.Email, cfg.Dev.Enabled), nil
}

// NewConnector returns a Connector that dials the configured broker.
func NewConnector(cfg config.MQTTConfig) transactioncloser.Connector {
	return func(ctx context.Context) (mqtt.Publisher, error) {
		return mqtt.Connect(ctx, cfg)
	}
}
