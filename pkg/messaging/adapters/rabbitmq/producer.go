package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

type producer struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func (p *producer) Publish(ctx context.Context, msg *messaging.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	routingKey := p.routingKey
	if msg.Topic != "" {
		routingKey = msg.Topic
	}

	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		MessageId:   msg.ID,
		Timestamp:   msg.Timestamp,
		Body:        msg.Payload,
		Headers:     headers,
		ContentType: "application/json",
	})
	if err != nil {
		return messaging.ErrPublishFailed(err)
	}
	return nil
}

func (p *producer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	for _, msg := range msgs {
		if err := p.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *producer) Close() error {
	return p.channel.Close()
}
