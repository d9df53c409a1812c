package aws

import (
	"context"
	"errors"
	"testing"

	"parking-jobs/internal/common/config"
	"parking-jobs/internal/common/sms"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func TestMailer_Send(t *testing.T) {
	tests := []struct {
		name   string
		dev    bool
		wantTo string
	}{
		{name: "production sends to requested address", dev: false, wantTo: "ops@example.com"},
		{name: "dev mode redirects to staff", dev: true, wantTo: "staff@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *ses.SendEmailInput
			mock := &MockSESService{
				SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
					captured = params
					return &ses.SendEmailOutput{}, nil
				},
			}

			m := NewMailer(mock, config.EmailConfig{FromEmail: "no-reply@example.com", StaffEmail: "staff@example.com"}, tt.dev)
			require.NoError(t, m.Send(context.Background(), "ops@example.com", "subject", "<b>body</b>"))

			require.NotNil(t, captured)
			assert.Equal(t, []string{tt.wantTo}, captured.Destination.ToAddresses)
			assert.Equal(t, "subject", aws.ToString(captured.Message.Subject.Data))
			assert.Equal(t, "<b>body</b>", aws.ToString(captured.Message.Body.Html.Data))
			assert.Equal(t, "no-reply@example.com", aws.ToString(captured.Source))
		})
	}
}

func TestMailer_SendError(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	m := NewMailer(mock, config.EmailConfig{}, false)
	assert.Error(t, m.Send(context.Background(), "ops@example.com", "s", "b"))
	assert.Error(t, m.Send(context.Background(), "", "s", "b"))
}

func TestSNSSender_Send(t *testing.T) {
	var phone string
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			phone = aws.ToString(params.PhoneNumber)
			return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
		},
	}

	res, err := NewSNSSender(mock, "852", "Uvision").Send(context.Background(), "91234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "+85291234567", phone)
	assert.Equal(t, sms.Success, res.Outcome)
	assert.Equal(t, "msg-1", res.Raw)
}

func TestSNSSender_PublishErrorIsRejection(t *testing.T) {
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("InvalidParameter")
		},
	}

	res, err := NewSNSSender(mock, "852", "").Send(context.Background(), "1", "hello")
	require.NoError(t, err)
	assert.Equal(t, sms.UnknownNegative, res.Outcome)
	assert.False(t, res.Outcome.Fatal())
}
