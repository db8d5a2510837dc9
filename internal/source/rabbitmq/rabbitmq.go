// Package rabbitmq wires a pkg/messaging/adapters/rabbitmq.Broker to the
// dispatcher for the rabbitmq and rabbitmq-withinfo subcommands.
package rabbitmq

import (
	"context"
	"os"
	"time"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/internal/source"
	"github.com/senzing-garage/stream-loader/pkg/logger"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/rabbitmq"
)

// Run connects to the configured RabbitMQ broker and drives the dispatcher
// until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, onFatal dispatch.FatalHandler) error {
	broker, err := rabbitmq.New(rabbitmq.Config{
		Host:                     cfg.RabbitmqHost,
		Port:                     cfg.RabbitmqPort,
		Username:                 cfg.RabbitmqUsername,
		Password:                 cfg.RabbitmqPassword,
		Exchange:                 cfg.RabbitmqExchange,
		Queue:                    cfg.RabbitmqQueue,
		UseExistingEntities:      cfg.RabbitmqUseExistingEntities,
		PrefetchCount:            cfg.RabbitmqPrefetchCount,
		HeartbeatInterval:        time.Duration(cfg.RabbitmqHeartbeatInSeconds) * time.Second,
		ReconnectDelay:           time.Duration(cfg.RabbitmqReconnectDelayInSeconds) * time.Second,
		ReconnectNumberOfRetries: cfg.RabbitmqReconnectNumberOfRetries,
	})
	if err != nil {
		return err
	}
	defer broker.Close()

	consumer, err := broker.Consumer(cfg.RabbitmqQueue, "")
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

	reconnectDelay := time.Duration(cfg.RabbitmqReconnectDelayInSeconds) * time.Second
	return source.Run(ctx, "rabbitmq", consumer, handler, reconnectDelay)
}

// FailureSink builds the failure-destination sink for the rabbitmq
// subcommands, or an unconfigured Sink if no failure queue is set.
func FailureSink(cfg *config.Config) (*sink.Sink, error) {
	if cfg.RabbitmqFailureQueue == "" {
		return sink.New(nil, ""), nil
	}
	broker, err := rabbitmq.New(rabbitmq.Config{
		Host:                coalesce(cfg.RabbitmqFailureHost, cfg.RabbitmqHost),
		Port:                coalesceInt(cfg.RabbitmqFailurePort, cfg.RabbitmqPort),
		Username:            coalesce(cfg.RabbitmqFailureUsername, cfg.RabbitmqUsername),
		Password:            coalesce(cfg.RabbitmqFailurePassword, cfg.RabbitmqPassword),
		Exchange:            cfg.RabbitmqFailureExchange,
		Queue:               cfg.RabbitmqFailureQueue,
		RoutingKey:          cfg.RabbitmqFailureRoutingKey,
		UseExistingEntities: cfg.RabbitmqUseExistingEntities,
	})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.RabbitmqFailureQueue)
	if err != nil {
		return nil, err
	}
	return sink.New(withExhaustionExit(producer, cfg, cfg.RabbitmqFailureQueue), cfg.RabbitmqFailureQueue), nil
}

// InfoSink builds the withinfo-destination sink for the
// rabbitmq-withinfo subcommand, or an unconfigured Sink if no info queue
// is set.
func InfoSink(cfg *config.Config) (*sink.Sink, error) {
	if cfg.RabbitmqInfoQueue == "" {
		return sink.New(nil, ""), nil
	}
	broker, err := rabbitmq.New(rabbitmq.Config{
		Host:                coalesce(cfg.RabbitmqInfoHost, cfg.RabbitmqHost),
		Port:                coalesceInt(cfg.RabbitmqInfoPort, cfg.RabbitmqPort),
		Username:            coalesce(cfg.RabbitmqInfoUsername, cfg.RabbitmqUsername),
		Password:            coalesce(cfg.RabbitmqInfoPassword, cfg.RabbitmqPassword),
		Exchange:            cfg.RabbitmqInfoExchange,
		Queue:               cfg.RabbitmqInfoQueue,
		RoutingKey:          cfg.RabbitmqInfoRoutingKey,
		UseExistingEntities: cfg.RabbitmqUseExistingEntities,
	})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.RabbitmqInfoQueue)
	if err != nil {
		return nil, err
	}
	return sink.New(withExhaustionExit(producer, cfg, cfg.RabbitmqInfoQueue), cfg.RabbitmqInfoQueue), nil
}

// withExhaustionExit wraps producer so that each publish is attempted up to
// cfg.RabbitmqReconnectNumberOfRetries times in all, via
// messaging.ResilientBroker's bounded retry: the first wait between
// attempts is cfg.RabbitmqReconnectDelayInSeconds (100ms when that is 0)
// and each later wait is double the one before, capped at 5 seconds.
// Exhausting every attempt terminates the process, matching
// the original bridge's failure/info queue publish contract (every other
// broker's failure/info write just withholds the source ack and lets the
// delivery redeliver).
func withExhaustionExit(producer messaging.Producer, cfg *config.Config, queue string) messaging.Producer {
	resilientBroker := messaging.NewResilientBroker(singleProducerBroker{producer: producer}, messaging.ResilientBrokerConfig{
		CircuitBreakerEnabled: false,
		RetryEnabled:          true,
		RetryMaxAttempts:      cfg.RabbitmqReconnectNumberOfRetries,
		RetryBackoff:          time.Duration(cfg.RabbitmqReconnectDelayInSeconds) * time.Second,
	})
	resilientProducer, err := resilientBroker.Producer(queue)
	if err != nil {
		return producer
	}
	return &exitOnExhaustedProducer{producer: resilientProducer, queue: queue, retries: cfg.RabbitmqReconnectNumberOfRetries}
}

// singleProducerBroker adapts an already-built messaging.Producer to the
// messaging.Broker interface ResilientBroker wraps, since the retry/circuit
// breaker machinery is expressed in terms of a broker's Producer
// constructor rather than a bare producer.
type singleProducerBroker struct {
	producer messaging.Producer
}

func (b singleProducerBroker) Producer(string) (messaging.Producer, error) { return b.producer, nil }

func (b singleProducerBroker) Consumer(string, string) (messaging.Consumer, error) {
	return nil, messaging.ErrInvalidConfig("singleProducerBroker does not support consumers", nil)
}

func (b singleProducerBroker) Close() error { return b.producer.Close() }

func (b singleProducerBroker) Healthy(context.Context) bool { return true }

// exitOnExhaustedProducer terminates the process once the wrapped
// resilient producer has exhausted its configured retries, unless the
// failure is due to ctx cancellation (a graceful shutdown in progress).
type exitOnExhaustedProducer struct {
	producer messaging.Producer
	queue    string
	retries  int
}

func (p *exitOnExhaustedProducer) Publish(ctx context.Context, msg *messaging.Message) error {
	err := p.producer.Publish(ctx, msg)
	p.exitIfExhausted(ctx, err)
	return err
}

func (p *exitOnExhaustedProducer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	err := p.producer.PublishBatch(ctx, msgs)
	p.exitIfExhausted(ctx, err)
	return err
}

func (p *exitOnExhaustedProducer) Close() error { return p.producer.Close() }

func (p *exitOnExhaustedProducer) exitIfExhausted(ctx context.Context, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	logger.L().ErrorContext(ctx, "program terminated with error",
		"reason", "rabbitmq publish exhausted retries", "queue", p.queue, "retries", p.retries, "error", err)
	os.Exit(1)
}

func coalesce(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func coalesceInt(primary, fallback int) int {
	if primary != 0 {
		return primary
	}
	return fallback
}
