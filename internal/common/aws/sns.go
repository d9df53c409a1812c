package aws

import (
	"context"
	"fmt"

	"parking-jobs/internal/common/metrics"
	"parking-jobs/internal/common/sms"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender is the alternative SMS provider. SNS has no per-recipient status
// codes, so a rejected publish is reported as UnknownNegative.
type SNSSender struct {
	client      SNSService
	countryCode string
	senderID    string
}

func NewSNSSender(client SNSService, countryCode, senderID string) *SNSSender {
	return &SNSSender{client: client, countryCode: countryCode, senderID: senderID}
}

func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

func (s *SNSSender) Send(ctx context.Context, mobile, message string) (sms.Result, error) {
	phone := "+" + s.countryCode + mobile

	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(s.senderID)},
			"AWS.SNS.SMS.SMSType":  {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		}
	}

	out, err := s.client.Publish(ctx, input)
	result := sms.Result{Outcome: sms.Success, Mobile: phone}
	if err != nil {
		result.Outcome = sms.UnknownNegative
		result.Raw = err.Error()
	} else if out.MessageId != nil {
		result.Raw = *out.MessageId
	}
	metrics.SMSOutcomes.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}
