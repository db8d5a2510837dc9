// Package kafka wires a pkg/messaging/adapters/kafka.Broker to the
// dispatcher for the kafka and kafka-withinfo subcommands.
package kafka

import (
	"context"
	"time"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/internal/source"
	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/kafka"
)

// Run connects to the configured Kafka cluster and drives the dispatcher
// until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, onFatal dispatch.FatalHandler) error {
	broker, err := kafka.New(kafka.Config{Brokers: []string{cfg.KafkaBootstrapServer}})
	if err != nil {
		return err
	}
	defer broker.Close()

	consumer, err := broker.Consumer(cfg.KafkaTopic, cfg.KafkaGroup)
	if err != nil {
		return err
	}
	defer consumer.Close()

	envelopeCfg := dispatch.EnvelopeConfig{
		DefaultDataSource: cfg.DataSource,
		DefaultEntityType: cfg.EntityType,
		DirectiveKey:      cfg.DirectiveKey,
		DefaultAction:     record.DefaultActionForSubcommand(cfg.Subcommand),
	}
	handler := dispatch.Handler(d, envelopeCfg, onFatal)

	return source.Run(ctx, "kafka", consumer, handler, 5*time.Second)
}

// FailureSink builds the failure-destination sink for the kafka
// subcommands, or an unconfigured Sink if no failure topic is set.
func FailureSink(cfg *config.Config) (*sink.Sink, error) {
	if cfg.KafkaFailureTopic == "" {
		return sink.New(nil, ""), nil
	}
	bootstrap := cfg.KafkaFailureBootstrapServer
	if bootstrap == "" {
		bootstrap = cfg.KafkaBootstrapServer
	}
	broker, err := kafka.New(kafka.Config{Brokers: []string{bootstrap}})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.KafkaFailureTopic)
	if err != nil {
		return nil, err
	}
	return sink.New(producer, cfg.KafkaFailureTopic), nil
}

// InfoSink builds the withinfo-destination sink for the kafka-withinfo
// subcommand, or an unconfigured Sink if no info topic is set.
func InfoSink(cfg *config.Config) (*sink.Sink, error) {
	if cfg.KafkaInfoTopic == "" {
		return sink.New(nil, ""), nil
	}
	bootstrap := cfg.KafkaInfoBootstrapServer
	if bootstrap == "" {
		bootstrap = cfg.KafkaBootstrapServer
	}
	broker, err := kafka.New(kafka.Config{Brokers: []string{bootstrap}})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.KafkaInfoTopic)
	if err != nil {
		return nil, err
	}
	return sink.New(producer, cfg.KafkaInfoTopic), nil
}
