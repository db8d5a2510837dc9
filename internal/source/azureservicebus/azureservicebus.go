// Package azureservicebus wires a pkg/messaging/adapters/azureservicebus.Broker
// to the dispatcher for the azure-queue and azure-queue-withinfo subcommands.
package azureservicebus

import (
	"context"
	"time"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/internal/dispatch"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/internal/source"
	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/azureservicebus"
)

const reconnectDelay = 5 * time.Second

// Run connects to the configured Azure Service Bus queue and drives the
// dispatcher until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, onFatal dispatch.FatalHandler) error {
	broker, err := azureservicebus.New(azureservicebus.Config{
		ConnectionString: cfg.AzureQueueConnectionString,
		QueueName:        cfg.AzureQueueName,
	})
	if err != nil {
		return err
	}
	defer broker.Close()

	consumer, err := broker.Consumer(cfg.AzureQueueName, "")
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

	return source.Run(ctx, "azureservicebus", consumer, handler, reconnectDelay)
}

// FailureSink builds the failure-destination sink for the azure-queue
// subcommands, or an unconfigured Sink if no failure queue is set.
func FailureSink(cfg *config.Config) (*sink.Sink, error) {
	if cfg.AzureFailureQueueName == "" {
		return sink.New(nil, ""), nil
	}
	connectionString := cfg.AzureFailureQueueConnectionString
	if connectionString == "" {
		connectionString = cfg.AzureQueueConnectionString
	}
	broker, err := azureservicebus.New(azureservicebus.Config{
		ConnectionString: connectionString,
		QueueName:        cfg.AzureFailureQueueName,
	})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.AzureFailureQueueName)
	if err != nil {
		return nil, err
	}
	return sink.New(producer, cfg.AzureFailureQueueName), nil
}

// InfoSink builds the withinfo-destination sink for the
// azure-queue-withinfo subcommand, or an unconfigured Sink if no info
// queue is set.
func InfoSink(cfg *config.Config) (*sink.Sink, error) {
	if cfg.AzureInfoQueueName == "" {
		return sink.New(nil, ""), nil
	}
	connectionString := cfg.AzureInfoQueueConnectionString
	if connectionString == "" {
		connectionString = cfg.AzureQueueConnectionString
	}
	broker, err := azureservicebus.New(azureservicebus.Config{
		ConnectionString: connectionString,
		QueueName:        cfg.AzureInfoQueueName,
	})
	if err != nil {
		return nil, err
	}
	producer, err := broker.Producer(cfg.AzureInfoQueueName)
	if err != nil {
		return nil, err
	}
	return sink.New(producer, cfg.AzureInfoQueueName), nil
}
