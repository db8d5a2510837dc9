package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/senzing-garage/stream-loader/internal/config"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

func TestCoalescePrefersNonEmptyPrimary(t *testing.T) {
	if got := coalesce("override", "fallback"); got != "override" {
		t.Fatalf("got %q", got)
	}
	if got := coalesce("", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}

func TestCoalesceIntPrefersNonZeroPrimary(t *testing.T) {
	if got := coalesceInt(5672, 1234); got != 5672 {
		t.Fatalf("got %d", got)
	}
	if got := coalesceInt(0, 1234); got != 1234 {
		t.Fatalf("got %d", got)
	}
}

type stubProducer struct {
	publishErr error
	calls      int
}

func (p *stubProducer) Publish(context.Context, *messaging.Message) error {
	p.calls++
	return p.publishErr
}
func (p *stubProducer) PublishBatch(context.Context, []*messaging.Message) error { return nil }
func (p *stubProducer) Close() error                                            { return nil }

func TestWithExhaustionExitPassesThroughSuccessfulPublish(t *testing.T) {
	stub := &stubProducer{}
	cfg := &config.Config{RabbitmqReconnectNumberOfRetries: 3, RabbitmqReconnectDelayInSeconds: 0}

	wrapped := withExhaustionExit(stub, cfg, "failure")

	if err := wrapped.Publish(context.Background(), &messaging.Message{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected exactly one publish call, got %d", stub.calls)
	}
}

func TestWithExhaustionExitWithholdsOnContextCancellation(t *testing.T) {
	stub := &stubProducer{publishErr: errors.New("broker unreachable")}
	cfg := &config.Config{RabbitmqReconnectNumberOfRetries: 3, RabbitmqReconnectDelayInSeconds: 0}

	wrapped := withExhaustionExit(stub, cfg, "failure")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := wrapped.Publish(ctx, &messaging.Message{})
	if err == nil {
		t.Fatal("expected an error to be returned")
	}
}
