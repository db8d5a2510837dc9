package sqs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

type consumer struct {
	client   *sqs.Client
	queueURL string
	cfg      Config
}

// Consume long-polls the queue, dispatching each received message to
// handler and deleting it only after handler returns nil. When
// cfg.ExitOnEmptyQueue is set, a long-poll that yields zero messages ends
// the loop — used by batch-style deployments that should terminate once
// the backlog is drained rather than idle-poll forever.
func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(c.queueURL),
			MaxNumberOfMessages:   clampMax(c.cfg.MaxNumberOfMessages),
			WaitTimeSeconds:       c.cfg.WaitTimeSeconds,
			VisibilityTimeout:     c.cfg.VisibilityTimeout,
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			return messaging.ErrConsumeFailed(err)
		}

		if len(out.Messages) == 0 {
			if c.cfg.ExitOnEmptyQueue {
				return nil
			}
			continue
		}

		for _, sqsMsg := range out.Messages {
			msg := toMessage(sqsMsg)
			if err := handler(ctx, msg); err != nil {
				if messaging.IsFatal(err) {
					return err
				}
				// Leave the message in flight; it becomes visible again
				// after VisibilityTimeout and is redelivered, eventually
				// landing in a dead-letter queue if one is configured via
				// the queue's redrive policy.
				continue
			}
			_, _ = c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(c.queueURL),
				ReceiptHandle: sqsMsg.ReceiptHandle,
			})
		}
	}
}

func clampMax(n int32) int32 {
	if n <= 0 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

func toMessage(sqsMsg types.Message) *messaging.Message {
	headers := make(map[string]string, len(sqsMsg.MessageAttributes))
	for k, v := range sqsMsg.MessageAttributes {
		if v.StringValue != nil {
			headers[k] = *v.StringValue
		}
	}
	var id string
	if sqsMsg.MessageId != nil {
		id = *sqsMsg.MessageId
	}
	var body []byte
	if sqsMsg.Body != nil {
		body = []byte(*sqsMsg.Body)
	}
	return &messaging.Message{
		ID:      id,
		Payload: body,
		Headers: headers,
		Metadata: messaging.MessageMetadata{
			ReceiptHandle: aws.ToString(sqsMsg.ReceiptHandle),
		},
	}
}

func (c *consumer) Close() error { return nil }
