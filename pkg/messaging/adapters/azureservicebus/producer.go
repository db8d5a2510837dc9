package azureservicebus

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

type producer struct {
	sender *azservicebus.Sender
}

func (p *producer) Publish(ctx context.Context, msg *messaging.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	sbMsg := &azservicebus.Message{
		MessageID:          &msg.ID,
		Body:                msg.Payload,
		ApplicationProperties: make(map[string]any, len(msg.Headers)),
	}
	for k, v := range msg.Headers {
		sbMsg.ApplicationProperties[k] = v
	}

	if err := p.sender.SendMessage(ctx, sbMsg, nil); err != nil {
		return messaging.ErrPublishFailed(err)
	}
	return nil
}

func (p *producer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	batch, err := p.sender.NewMessageBatch(ctx, nil)
	if err != nil {
		return messaging.ErrPublishFailed(err)
	}

	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		sbMsg := &azservicebus.Message{MessageID: &msg.ID, Body: msg.Payload}
		if err := batch.AddMessage(sbMsg, nil); err != nil {
			return messaging.ErrPublishFailed(err)
		}
	}

	if err := p.sender.SendMessageBatch(ctx, batch, nil); err != nil {
		return messaging.ErrPublishFailed(err)
	}
	return nil
}

func (p *producer) Close() error {
	return p.sender.Close(context.Background())
}
