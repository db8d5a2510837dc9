// Package sqs wires a pkg/messaging/adapters/sqs.Broker to the dispatcher
// for the sqs and sqs-withinfo subcommands.
package sqs

import (
	"context"
	"time"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/internal/source"
	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/sqs"
)

const reconnectDelay = 5 * time.Second

// Run connects to the configured SQS queue and drives the dispatcher until
// ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, onFatal dispatch.FatalHandler) error {
	broker, err := sqs.New(ctx, sqs.Config{
		QueueURL:          cfg.SqsQueueURL,
		WaitTimeSeconds:   int32(cfg.SqsWaitTimeSeconds),
		VisibilityTimeout: int32(cfg.SqsVisibilityTimeout),
		ExitOnEmptyQueue:  cfg.ExitOnEmptyQueue,
	})
	if err != nil {
		return err
	}
	defer broker.Close()

	consumer, err := broker.Consumer(cfg.SqsQueueURL, "")
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

	return source.Run(ctx, "sqs", consumer, handler, reconnectDelay)
}

// FailureSink builds the failure-destination sink for the sqs
// subcommands, or an unconfigured Sink if no failure queue URL is set.
func FailureSink(ctx context.Context, cfg *config.Config) (*sink.Sink, error) {
	if cfg.SqsFailureQueueURL == "" {
		return sink.New(nil, ""), nil
	}
	broker, err := sqs.New(ctx, sqs.Config{QueueURL: cfg.SqsFailureQueueURL})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.SqsFailureQueueURL)
	if err != nil {
		return nil, err
	}
	return sink.New(producer, cfg.SqsFailureQueueURL), nil
}

// InfoSink builds the withinfo-destination sink for the sqs-withinfo
// subcommand, or an unconfigured Sink if no info queue URL is set.
func InfoSink(ctx context.Context, cfg *config.Config) (*sink.Sink, error) {
	if cfg.SqsInfoQueueURL == "" {
		return sink.New(nil, ""), nil
	}
	broker, err := sqs.New(ctx, sqs.Config{QueueURL: cfg.SqsInfoQueueURL})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.SqsInfoQueueURL)
	if err != nil {
		return nil, err
	}
	return sink.New(producer, cfg.SqsInfoQueueURL), nil
}
