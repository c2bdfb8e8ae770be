package iot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the part of the SQS client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// MessageHandler processes one message body.
type MessageHandler interface {
	HandleDeviceEvent(ctx context.Context, body string) error
}

type SQSConsumer struct {
	sqsClient    SQSAPI
	queueURL     string
	handler      MessageHandler
	isPermanent  func(error) bool
	logger       *zap.Logger
	retryBackoff time.Duration
}

// NewSQSConsumer builds a consumer. Messages whose error satisfies
// isPermanent are deleted; other failures stay on the queue and come back
// after the visibility timeout.
func NewSQSConsumer(client SQSAPI, queueURL string, handler MessageHandler, isPermanent func(error) bool, logger *zap.Logger) *SQSConsumer {
	if isPermanent == nil {
		isPermanent = func(error) bool { return false }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSConsumer{
		sqsClient:    client,
		queueURL:     queueURL,
		handler:      handler,
		isPermanent:  isPermanent,
		logger:       logger,
		retryBackoff: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.Info("SQS consumer started", zap.String("queue_url", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS consumer stopped")
			return
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("SQS receive failed", zap.Error(err))
			select {
			case <-time.After(c.retryBackoff):
			case <-ctx.Done():
			}
			continue
		}

		for _, message := range result.Messages {
			c.process(ctx, message.MessageId, message.Body, message.ReceiptHandle)
		}
	}
}

func (c *SQSConsumer) process(ctx context.Context, messageID, body, receiptHandle *string) {
	id := aws.ToString(messageID)
	if body == nil {
		c.logger.Warn("Empty SQS message body, deleting", zap.String("message_id", id))
		c.deleteMessage(ctx, receiptHandle)
		return
	}

	err := c.handler.HandleDeviceEvent(ctx, *body)
	switch {
	case err == nil:
		c.deleteMessage(ctx, receiptHandle)
	case c.isPermanent(err):
		c.logger.Warn("Dropping gate message that cannot succeed",
			zap.String("message_id", id),
			zap.Error(err),
		)
		c.deleteMessage(ctx, receiptHandle)
	default:
		c.logger.Error("Gate message failed, leaving it for redelivery",
			zap.String("message_id", id),
			zap.Error(err),
		)
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		c.logger.Warn("Missing receipt handle, cannot delete message")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.Error("SQS delete failed", zap.Error(err))
	}
}
