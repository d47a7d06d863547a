// Package ses implements the dispatch.Provider contract over AWS SES v2.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/campaign-dispatch/internal/dispatch"
)

// Config holds the explicit construction parameters for the SES client.
// The client is a constructed dependency injected into the executor, never a
// process-wide singleton, so tests can substitute doubles and two campaigns
// can send through different accounts.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint, when set, overrides the SES API endpoint (LocalStack, test
	// harnesses).
	Endpoint string
	// ConfigurationSet is attached to every send so SES publishes
	// delivery/open/click/bounce events for it.
	ConfigurationSet string
}

// api is the slice of the SES v2 SDK the client uses.
type api interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Client sends bulk mail through SES v2. One BulkSend call maps to one
// SendEmail with a multi-recipient destination; SES caps destinations at 50
// per call, which is the chunk ceiling the planner enforces.
type Client struct {
	api              api
	configurationSet string
}

// NewClient creates an SES API client from explicit credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	sdk := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Client{api: sdk, configurationSet: cfg.ConfigurationSet}, nil
}

// BulkSend delivers one chunk in a single provider call. The call is atomic:
// SES accepts the whole destination list and returns one message id, or the
// call fails. The campaign tag rides along as an EmailTag and is echoed back
// in every event SES publishes for these messages.
func (c *Client) BulkSend(ctx context.Context, msg dispatch.BulkMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("empty recipient chunk")
	}
	if len(msg.To) > dispatch.SESBatchSize {
		return "", fmt.Errorf("chunk size %d exceeds SES max %d", len(msg.To), dispatch.SESBatchSize)
	}

	addrs := make([]string, len(msg.To))
	for i, r := range msg.To {
		addrs[i] = r.Email
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{BccAddresses: addrs},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	for name, value := range msg.Tags {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	set := msg.ConfigurationSet
	if set == "" {
		set = c.configurationSet
	}
	if set != "" {
		input.ConfigurationSetName = aws.String(set)
	}

	out, err := c.api.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	if out.MessageId == nil {
		return "", fmt.Errorf("ses send: empty message id")
	}
	return *out.MessageId, nil
}
