// Package source holds the backend-shared consume loop every broker-backed
// source consumer (Kafka, RabbitMQ, SQS, Azure Service Bus) drives: fetch
// via messaging.Consumer.Consume, dispatch through the handler built by
// internal/dispatch, and reconnect with bounded backoff on a transient
// connectivity fault. internal/source/urlstdin implements its own loop,
// since stdin/file/HTTP input has no broker to reconnect to.
package source

import (
	"context"
	"time"

	"github.com/senzing-garage/stream-loader/pkg/logger"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// Run drives consumer.Consume(ctx, handler) until ctx is canceled,
// reconnecting after reconnectDelay whenever Consume returns a transient,
// non-context error (a broker disconnect). The consume path retries
// unbounded on transient faults — unlike the bounded-retry publish paths
// used by the failure/info sinks — but a messaging.IsFatal error (an
// unrecoverable resolver classification) ends the loop immediately instead
// of reconnecting, since redelivering a poisoned message can never
// succeed.
func Run(ctx context.Context, name string, consumer messaging.Consumer, handler messaging.MessageHandler, reconnectDelay time.Duration) error {
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	for {
		err := consumer.Consume(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			continue
		}
		if messaging.IsFatal(err) {
			logger.L().ErrorContext(ctx, "source consumer stopping on unrecoverable error", "consumer", name, "error", err)
			return err
		}
		logger.L().ErrorContext(ctx, "source consumer disconnected, reconnecting", "consumer", name, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}
