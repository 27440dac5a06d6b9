package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used by the notifier. Declared
// here so tests can substitute a fake.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESConfig holds the settings for the Amazon SES transport. When AccessKey
// is empty the default AWS credential chain is used.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

// SESNotifier delivers messages through Amazon SES.
type SESNotifier struct {
	client SESAPI
	from   string
}

// NewSESNotifier builds an SES transport, loading AWS configuration for the
// given region.
func NewSESNotifier(ctx context.Context, config SESConfig) (*SESNotifier, error) {
	if config.Region == "" {
		return nil, fmt.Errorf("ses region cannot be empty")
	}
	if config.From == "" {
		return nil, fmt.Errorf("ses from address cannot be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		client: ses.NewFromConfig(cfg),
		from:   config.From,
	}, nil
}

// NewSESNotifierWithClient creates an SES transport around an existing
// client. Used by tests.
func NewSESNotifierWithClient(client SESAPI, from string) *SESNotifier {
	return &SESNotifier{client: client, from: from}
}

// Name identifies the transport.
func (n *SESNotifier) Name() string {
	return "ses"
}

// Send delivers one message to one address.
func (n *SESNotifier) Send(ctx context.Context, to, subject, body string) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	return nil
}
