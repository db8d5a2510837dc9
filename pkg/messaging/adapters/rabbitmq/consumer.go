package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

type consumer struct {
	channel *amqp.Channel
	queue   string
}

// Consume delivers messages one at a time (manual ack), acking only after
// handler returns nil and nacking-with-requeue otherwise, so a dispatch
// failure redelivers the message rather than losing it. A fatal handler
// error is nacked without requeue and returned, stopping the loop rather
// than redelivering a message that can never succeed.
func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return messaging.ErrConsumeFailed(err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}

			headers := make(map[string]string, len(delivery.Headers))
			for k, v := range delivery.Headers {
				if s, ok := v.(string); ok {
					headers[k] = s
				}
			}

			msg := &messaging.Message{
				ID:        delivery.MessageId,
				Topic:     delivery.RoutingKey,
				Payload:   delivery.Body,
				Headers:   headers,
				Timestamp: delivery.Timestamp,
				Metadata: messaging.MessageMetadata{
					DeliveryCount: int(delivery.DeliveryTag),
				},
			}

			if err := handler(ctx, msg); err != nil {
				if messaging.IsFatal(err) {
					_ = delivery.Nack(false, false)
					return err
				}
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (c *consumer) Close() error {
	return c.channel.Close()
}
