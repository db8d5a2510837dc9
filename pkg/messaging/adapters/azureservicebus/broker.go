// Package azureservicebus adapts
// github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus to the
// messaging.Broker contract. Azure Service Bus support has no equivalent
// in the bridge's original Python implementation; it is a later addition
// modeled on the same publish/consume contract as the other backends.
package azureservicebus

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// Config configures an Azure Service Bus Broker.
type Config struct {
	ConnectionString string `env:"AZURE_QUEUE_CONNECTION_STRING"`
	QueueName        string `env:"AZURE_QUEUE_NAME"`
}

// Broker is an Azure Service Bus-backed messaging.Broker.
type Broker struct {
	cfg    Config
	client *azservicebus.Client
}

// New connects using cfg.ConnectionString.
func New(cfg Config) (*Broker, error) {
	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &Broker{cfg: cfg, client: client}, nil
}

func (b *Broker) queueName(topic string) string {
	if topic != "" {
		return topic
	}
	return b.cfg.QueueName
}

// Producer returns a sender bound to topic (or cfg.QueueName when empty).
func (b *Broker) Producer(topic string) (messaging.Producer, error) {
	sender, err := b.client.NewSender(b.queueName(topic), nil)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &producer{sender: sender}, nil
}

// Consumer returns a receiver bound to topic (or cfg.QueueName). group is
// accepted for interface compatibility; Azure Service Bus selects peer
// competition by queue, not a separate group identifier.
func (b *Broker) Consumer(topic string, _ string) (messaging.Consumer, error) {
	receiver, err := b.client.NewReceiverForQueue(b.queueName(topic), nil)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &consumer{receiver: receiver}, nil
}

func (b *Broker) Close() error {
	return b.client.Close(context.Background())
}

func (b *Broker) Healthy(_ context.Context) bool {
	return b.client != nil
}
