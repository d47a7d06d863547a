package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/campaign-dispatch/internal/pkg/logger"
)

// Consumer drains an SNS-fed SQS queue of SES events into the reconciler.
// Deployments that point the configuration set at SNS->SQS instead of a
// public webhook endpoint use this path; the normalization and reconciliation
// are identical.
type Consumer struct {
	sqsClient *sqs.Client
	queueURL  string
	rec       Reconciler
	done      chan struct{}
}

// NewConsumer creates an SQS consumer for the given queue.
func NewConsumer(sqsClient *sqs.Client, queueURL string, rec Reconciler) *Consumer {
	return &Consumer{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		rec:       rec,
		done:      make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("sqs event consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

// Stop signals the poll loop to exit after the in-flight receive.
func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("sqs receive error", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			if msg.Body == nil {
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}

			body := []byte(*msg.Body)
			var env snsEnvelope
			if err := json.Unmarshal(body, &env); err == nil && env.Type == "Notification" {
				body = []byte(env.Message)
			}

			events, err := NormalizeSES(body)
			if err != nil {
				logger.Warn("sqs bad event body dropped", "error", err)
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}

			failed := false
			for _, evt := range events {
				if _, err := c.rec.Reconcile(ctx, evt); err != nil {
					logger.Error("sqs event reconciliation failed", "type", string(evt.Type), "message_id", evt.MessageID, "error", err)
					failed = true
				}
			}
			// Leave failed messages for redelivery; drops are deleted.
			if !failed {
				c.deleteMessage(ctx, msg.ReceiptHandle)
			}
		}
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
}
