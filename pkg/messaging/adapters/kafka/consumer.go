package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// consumer adapts a sarama ConsumerGroup to messaging.Consumer.
type consumer struct {
	topic string
	group sarama.ConsumerGroup
}

// Consume joins the consumer group and re-joins on every rebalance until
// ctx is canceled. Each partition claim is handled by consumerGroupHandler,
// which commits the offset only after handler returns nil.
func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	h := &consumerGroupHandler{handler: handler}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if messaging.IsFatal(err) {
				return err
			}
			return messaging.ErrConsumeFailed(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler messaging.MessageHandler
}

func (consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			headers := make(map[string]string, len(msg.Headers))
			for _, hdr := range msg.Headers {
				headers[string(hdr.Key)] = string(hdr.Value)
			}

			m := &messaging.Message{
				Topic:     msg.Topic,
				Key:       msg.Key,
				Payload:   msg.Value,
				Headers:   headers,
				Timestamp: msg.Timestamp,
				Metadata: messaging.MessageMetadata{
					Partition: msg.Partition,
					Offset:    msg.Offset,
				},
			}

			if err := h.handler(session.Context(), m); err != nil {
				if messaging.IsFatal(err) {
					return err
				}
				// Do not mark the message, and end this claim so no later
				// MarkMessage commits past it. Ending a claim ends the
				// session; Consume's next group.Consume call resumes from
				// the last committed offset and redelivers this message,
				// matching the at-least-once contract every backend in
				// this bridge uses.
				return nil
			}
			session.MarkMessage(msg, "")
			session.Commit()
		}
	}
}
