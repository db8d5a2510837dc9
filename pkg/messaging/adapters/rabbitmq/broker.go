// Package rabbitmq adapts github.com/rabbitmq/amqp091-go to the
// messaging.Broker contract, with the initial dial retried by
// pkg/resilience's backoff helper and prefetch-bounded delivery so a single
// slow consumer cannot starve the connection's other channels. A connection
// lost after New returns is not re-dialed by this package.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
	"github.com/senzing-garage/stream-loader/pkg/resilience"
)

// Config configures a RabbitMQ Broker.
type Config struct {
	Host     string `env:"RABBITMQ_HOST"`
	Port     int    `env:"RABBITMQ_PORT" env-default:"5672"`
	Username string `env:"RABBITMQ_USERNAME" env-default:"guest"`
	Password string `env:"RABBITMQ_PASSWORD" env-default:"guest"`
	Exchange string `env:"RABBITMQ_EXCHANGE"`

	// Queue is declared passively (must already exist) unless
	// UseExistingEntities is false, in which case it is declared actively
	// (durable, non-exclusive, non-auto-delete).
	Queue               string `env:"RABBITMQ_QUEUE"`
	RoutingKey          string `env:"RABBITMQ_ROUTING_KEY"`
	UseExistingEntities bool   `env:"RABBITMQ_USE_EXISTING_ENTITIES" env-default:"false"`

	PrefetchCount            int           `env:"RABBITMQ_PREFETCH_COUNT" env-default:"50"`
	HeartbeatInterval         time.Duration `env:"RABBITMQ_HEARTBEAT_IN_SECONDS" env-default:"60s"`
	ReconnectDelay            time.Duration `env:"RABBITMQ_RECONNECT_DELAY_IN_SECONDS" env-default:"60s"`
	ReconnectNumberOfRetries int           `env:"RABBITMQ_RECONNECT_NUMBER_OF_RETRIES" env-default:"10"`
}

func (c Config) url() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.Username, c.Password, c.Host, c.Port)
}

// Broker is a RabbitMQ-backed messaging.Broker. One underlying connection
// is shared by every Producer/Consumer it creates; each gets its own
// channel, per the amqp091-go recommendation against sharing channels
// across goroutines.
type Broker struct {
	cfg  Config
	conn *amqp.Connection
}

// New dials cfg's broker, retrying per cfg.ReconnectNumberOfRetries with
// cfg.ReconnectDelay backoff before giving up.
func New(cfg Config) (*Broker, error) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    cfg.ReconnectNumberOfRetries,
		InitialBackoff: cfg.ReconnectDelay,
		MaxBackoff:     cfg.ReconnectDelay,
		Multiplier:     1.0,
	}
	if retryCfg.MaxAttempts <= 0 {
		retryCfg.MaxAttempts = 1
	}

	var conn *amqp.Connection
	err := resilience.Retry(context.Background(), retryCfg, func(context.Context) error {
		amqpCfg := amqp.Config{Heartbeat: cfg.HeartbeatInterval}
		var dialErr error
		conn, dialErr = amqp.DialConfig(cfg.url(), amqpCfg)
		return dialErr
	})
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}

	return &Broker{cfg: cfg, conn: conn}, nil
}

func (b *Broker) declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	if b.cfg.UseExistingEntities {
		return ch.QueueDeclarePassive(b.cfg.Queue, true, false, false, false, nil)
	}
	return ch.QueueDeclare(b.cfg.Queue, true, false, false, false, nil)
}

// Producer returns a producer that publishes to cfg.Exchange (or the
// default exchange when Exchange is empty) with cfg.RoutingKey, or topic
// when RoutingKey is unset.
func (b *Broker) Producer(topic string) (messaging.Producer, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	if _, err := b.declareQueue(ch); err != nil {
		return nil, messaging.ErrTopicNotFound(b.cfg.Queue, err)
	}
	routingKey := b.cfg.RoutingKey
	if routingKey == "" {
		routingKey = topic
	}
	return &producer{channel: ch, exchange: b.cfg.Exchange, routingKey: routingKey}, nil
}

// Consumer returns a consumer bound to cfg.Queue, with QoS prefetch set to
// cfg.PrefetchCount so the broker never pushes more unacked deliveries than
// the worker pool can hold in flight.
func (b *Broker) Consumer(_ string, _ string) (messaging.Consumer, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	if _, err := b.declareQueue(ch); err != nil {
		return nil, messaging.ErrTopicNotFound(b.cfg.Queue, err)
	}
	prefetch := b.cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, messaging.ErrInvalidConfig("failed to set QoS prefetch", err)
	}
	return &consumer{channel: ch, queue: b.cfg.Queue}, nil
}

func (b *Broker) Close() error {
	return b.conn.Close()
}

func (b *Broker) Healthy(_ context.Context) bool {
	return !b.conn.IsClosed()
}
