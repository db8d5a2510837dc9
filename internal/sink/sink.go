// Package sink wraps the failure and info destinations the dispatcher
// writes to. Both are ordinary messaging.Producer instances; the package
// exists to give them a name in the dispatcher's vocabulary and to make
// "no sink configured" an explicit, checkable state rather than a nil
// pointer that panics on first use.
package sink

import (
	"context"

	"github.com/senzing-garage/stream-loader/pkg/logger"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// Sink publishes terminal-but-unresolved records (failure) or resolver
// info blobs (info) to a broker-backed destination.
type Sink struct {
	producer messaging.Producer
	topic    string
}

// New wraps producer. A nil producer yields a Sink whose Publish is a
// logged no-op, used when a deployment configures no failure/info
// destination for a given backend.
func New(producer messaging.Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// Configured reports whether a real producer backs this sink.
func (s *Sink) Configured() bool {
	return s != nil && s.producer != nil
}

// Publish writes payload to the sink. Per the acknowledgement discipline
// in the bridge's delivery contract, a failed sink write must propagate so
// the caller withholds the source ack rather than silently dropping data.
func (s *Sink) Publish(ctx context.Context, payload []byte) error {
	if !s.Configured() {
		logger.L().WarnContext(ctx, "sink not configured, dropping message", "topic", s.safeTopic())
		return nil
	}
	return s.producer.Publish(ctx, &messaging.Message{Topic: s.topic, Payload: payload})
}

func (s *Sink) safeTopic() string {
	if s == nil {
		return ""
	}
	return s.topic
}

// Close releases the underlying producer, if any.
func (s *Sink) Close() error {
	if !s.Configured() {
		return nil
	}
	return s.producer.Close()
}
