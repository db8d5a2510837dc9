package azureservicebus

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

type consumer struct {
	receiver *azservicebus.Receiver
}

// Consume receives messages in small batches, dispatching each to handler
// and completing it only after handler returns nil; otherwise the message
// is abandoned, making it immediately eligible for redelivery (and
// eventually the queue's dead-letter sub-queue once its max delivery count
// is exceeded).
func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	for {
		messages, err := c.receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return messaging.ErrConsumeFailed(err)
		}

		for _, sbMsg := range messages {
			msg := toMessage(sbMsg)
			if err := handler(ctx, msg); err != nil {
				if messaging.IsFatal(err) {
					return err
				}
				_ = c.receiver.AbandonMessage(ctx, sbMsg, nil)
				continue
			}
			_ = c.receiver.CompleteMessage(ctx, sbMsg, nil)
		}

		if len(messages) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
}

func toMessage(sbMsg *azservicebus.ReceivedMessage) *messaging.Message {
	headers := make(map[string]string, len(sbMsg.ApplicationProperties))
	for k, v := range sbMsg.ApplicationProperties {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	var id string
	if sbMsg.MessageID != "" {
		id = sbMsg.MessageID
	}
	return &messaging.Message{
		ID:      id,
		Payload: sbMsg.Body,
		Headers: headers,
		Metadata: messaging.MessageMetadata{
			DeliveryCount: int(sbMsg.DeliveryCount),
		},
	}
}

func (c *consumer) Close() error {
	return c.receiver.Close(context.Background())
}
