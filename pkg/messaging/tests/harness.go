// Package tests holds a broker-agnostic conformance suite for
// messaging.Broker adapters. In this repository only the memory adapter's
// test runs it; the Kafka, RabbitMQ, SQS, and Azure Service Bus adapters
// are not run against it.
package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// RunBrokerTests exercises a fresh Broker against the baseline contract
// every adapter must satisfy: publish-then-consume round trip, batch
// publish, and Healthy reporting true.
func RunBrokerTests(t *testing.T, broker messaging.Broker) {
	t.Run("PublishAndConsume", func(t *testing.T) {
		testPublishAndConsume(t, broker)
	})
	t.Run("PublishBatch", func(t *testing.T) {
		testPublishBatch(t, broker)
	})
	t.Run("Healthy", func(t *testing.T) {
		assert.True(t, broker.Healthy(context.Background()))
	})
}

func testPublishAndConsume(t *testing.T, broker messaging.Broker) {
	topic := "conformance-" + uuid.New().String()

	producer, err := broker.Producer(topic)
	require.NoError(t, err)
	defer producer.Close()

	consumer, err := broker.Consumer(topic, "conformance-group")
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seen  []*messaging.Message
		ready = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(ready)
		_ = consumer.Consume(ctx, func(_ context.Context, msg *messaging.Message) error {
			mu.Lock()
			seen = append(seen, msg)
			mu.Unlock()
			cancel()
			return nil
		})
	}()
	<-ready

	require.NoError(t, producer.Publish(context.Background(), &messaging.Message{
		Topic:   topic,
		Payload: []byte(`{"hello":"world"}`),
	}))

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, `{"hello":"world"}`, string(seen[0].Payload))
}

func testPublishBatch(t *testing.T, broker messaging.Broker) {
	topic := "conformance-batch-" + uuid.New().String()

	producer, err := broker.Producer(topic)
	require.NoError(t, err)
	defer producer.Close()

	consumer, err := broker.Consumer(topic, "conformance-batch-group")
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const want = 3
	var (
		mu    sync.Mutex
		count int
		done  = make(chan struct{})
	)
	go func() {
		_ = consumer.Consume(ctx, func(_ context.Context, _ *messaging.Message) error {
			mu.Lock()
			count++
			n := count
			mu.Unlock()
			if n == want {
				close(done)
			}
			return nil
		})
	}()

	msgs := make([]*messaging.Message, 0, want)
	for i := 0; i < want; i++ {
		msgs = append(msgs, &messaging.Message{Topic: topic, Payload: []byte("payload")})
	}
	require.NoError(t, producer.PublishBatch(context.Background(), msgs))

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for batch messages")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, count)
}
