// Package kafka adapts github.com/IBM/sarama to the messaging.Broker
// contract. Offsets are committed manually after the handler returns nil,
// never on a timer, so a crash mid-dispatch redelivers the in-flight
// message rather than silently dropping it.
package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// Config configures a Kafka Broker.
type Config struct {
	Brokers []string `env:"KAFKA_BROKERS"`

	// SASL/TLS are left to the caller via ClientConfig, since the
	// authentication surface (PLAIN, SCRAM, Kerberos via jcmturner) varies
	// too widely across deployments to model as flat env fields here.
	ClientConfig *sarama.Config
}

// Broker is a Kafka-backed messaging.Broker.
type Broker struct {
	cfg    Config
	client sarama.Client
}

// New dials the given bootstrap brokers and returns a ready Broker.
func New(cfg Config) (*Broker, error) {
	saramaCfg := cfg.ClientConfig
	if saramaCfg == nil {
		saramaCfg = sarama.NewConfig()
		saramaCfg.Producer.Return.Successes = true
		saramaCfg.Consumer.Offsets.AutoCommit.Enable = false
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	client, err := sarama.NewClient(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}

	return &Broker{cfg: cfg, client: client}, nil
}

// Producer returns a synchronous producer bound to topic.
func (b *Broker) Producer(topic string) (messaging.Producer, error) {
	syncProducer, err := sarama.NewSyncProducerFromClient(b.client)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &producer{broker: b, topic: topic, producer: syncProducer}, nil
}

// Consumer returns a consumer-group consumer bound to topic. group selects
// the sarama consumer group, which is what makes offset commits durable
// and shared across worker processes.
func (b *Broker) Consumer(topic string, group string) (messaging.Consumer, error) {
	consumerGroup, err := sarama.NewConsumerGroupFromClient(group, b.client)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &consumer{topic: topic, group: consumerGroup}, nil
}

func (b *Broker) Close() error {
	return b.client.Close()
}

func (b *Broker) Healthy(_ context.Context) bool {
	return !b.client.Closed()
}
