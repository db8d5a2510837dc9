// Package memory provides an in-process Broker implementation backed by
// buffered Go channels. It is used by unit tests (the dispatch and envelope
// tests and the broker conformance suite), where standing up a real broker
// is unnecessary.
package memory

import (
	"context"
	"sync"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// Config configures a memory Broker.
type Config struct {
	// BufferSize is the channel capacity allotted to each topic created by
	// the broker. A full channel blocks Publish until a consumer drains it.
	BufferSize int
}

// Broker is a channel-backed messaging.Broker. It is safe for concurrent
// use by multiple producers and consumers.
type Broker struct {
	cfg Config

	mu     sync.Mutex
	topics map[string]chan *messaging.Message
	closed bool
}

// New constructs a ready-to-use memory broker.
func New(cfg Config) *Broker {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	return &Broker{
		cfg:    cfg,
		topics: make(map[string]chan *messaging.Message),
	}
}

func (b *Broker) channel(topic string) chan *messaging.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.topics[topic]
	if !ok {
		ch = make(chan *messaging.Message, b.cfg.BufferSize)
		b.topics[topic] = ch
	}
	return ch
}

// Producer returns a producer that writes to topic's channel.
func (b *Broker) Producer(topic string) (messaging.Producer, error) {
	return &producer{broker: b, topic: topic}, nil
}

// Consumer returns a consumer that reads from topic's channel. The group
// parameter is accepted for interface compatibility but ignored: every
// consumer of a topic competes for the same channel, mirroring a single
// consumer group with one partition.
func (b *Broker) Consumer(topic string, _ string) (messaging.Consumer, error) {
	return &consumer{broker: b, topic: topic}, nil
}

// Close marks the broker closed. Any channel already handed out remains
// usable; new Publish calls after Close fail with messaging.ErrClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Healthy always reports true: there is no external connection to fail.
func (b *Broker) Healthy(_ context.Context) bool {
	return true
}

type producer struct {
	broker *Broker
	topic  string
}

func (p *producer) Publish(ctx context.Context, msg *messaging.Message) error {
	p.broker.mu.Lock()
	closed := p.broker.closed
	p.broker.mu.Unlock()
	if closed {
		return messaging.ErrClosed(nil)
	}

	topic := msg.Topic
	if topic == "" {
		topic = p.topic
	}
	ch := p.broker.channel(topic)

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *producer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	for _, msg := range msgs {
		if err := p.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *producer) Close() error { return nil }

type consumer struct {
	broker *Broker
	topic  string
	mu     sync.Mutex
	closed bool
}

func (c *consumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	ch := c.broker.channel(c.topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			if err := handler(ctx, msg); err != nil {
				// No redelivery queue in this adapter: a handler error is
				// logged by the caller and the message is dropped, matching
				// the at-most-once behavior acceptable for test fixtures.
				continue
			}
		}
	}
}

func (c *consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
