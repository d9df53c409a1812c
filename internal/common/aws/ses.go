package aws

import (
	"context"
	"fmt"

	"parking-jobs/internal/common/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends HTML e-mail through SES. In dev mode every message goes to
// the staff address instead of the requested recipient.
type Mailer struct {
	client     SESService
	from       string
	staffEmail string
	devMode    bool
}

func NewMailer(client SESService, cfg config.EmailConfig, devMode bool) *Mailer {
	return &Mailer{
		client:     client,
		from:       cfg.FromEmail,
		staffEmail: cfg.StaffEmail,
		devMode:    devMode,
	}
}

func NewSESClient(ctx context.Context, region string) (*ses.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return ses.NewFromConfig(cfg), nil
}

// Recipient returns the address a message for to will actually be sent to.
func (m *Mailer) Recipient(to string) string {
	if m.devMode && m.staffEmail != "" {
		return m.staffEmail
	}
	return to
}

func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	to = m.Recipient(to)
	if to == "" {
		return fmt.Errorf("no recipient for %q", subject)
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}
