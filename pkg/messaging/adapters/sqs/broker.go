// Package sqs adapts github.com/aws/aws-sdk-go-v2/service/sqs to the
// messaging.Broker contract: long-polling receives, explicit
// DeleteMessage-based acknowledgment, and optional exit-on-empty-queue
// behavior for batch-style deployments that should terminate rather than
// poll forever.
package sqs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

// Config configures an SQS Broker.
type Config struct {
	// QueueURL is used when the caller doesn't pass an explicit topic to
	// Broker.Producer/Consumer (both fall back to it).
	QueueURL string `env:"SQS_QUEUE_URL"`

	WaitTimeSeconds     int32 `env:"SQS_WAIT_TIME_SECONDS" env-default:"20"`
	VisibilityTimeout   int32 `env:"SQS_VISIBILITY_TIMEOUT_SECONDS" env-default:"30"`
	MaxNumberOfMessages int32 `env:"SQS_MAX_NUMBER_OF_MESSAGES" env-default:"1"`

	// ExitOnEmptyQueue stops Consume (returning nil) the first time a
	// long-poll receive returns zero messages, instead of polling forever.
	ExitOnEmptyQueue bool `env:"SQS_EXIT_ON_EMPTY_QUEUE" env-default:"false"`
}

// Broker is an SQS-backed messaging.Broker.
type Broker struct {
	cfg    Config
	client *sqs.Client
}

// New loads the default AWS SDK v2 config chain (env vars, shared config,
// EC2/ECS role credentials) and returns a ready Broker.
func New(ctx context.Context, cfg Config) (*Broker, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, messaging.ErrConnectionFailed(err)
	}
	return &Broker{cfg: cfg, client: sqs.NewFromConfig(awsCfg)}, nil
}

func (b *Broker) queueURL(topic string) string {
	if topic != "" {
		return topic
	}
	return b.cfg.QueueURL
}

// Producer returns a producer bound to topic (or cfg.QueueURL when topic
// is empty) — SQS has no separate producer handle, so this just captures
// the destination queue URL.
func (b *Broker) Producer(topic string) (messaging.Producer, error) {
	return &producer{client: b.client, queueURL: b.queueURL(topic)}, nil
}

// Consumer returns a consumer bound to topic (or cfg.QueueURL). group is
// accepted for interface compatibility; SQS has no consumer-group concept.
func (b *Broker) Consumer(topic string, _ string) (messaging.Consumer, error) {
	return &consumer{client: b.client, queueURL: b.queueURL(topic), cfg: b.cfg}, nil
}

func (b *Broker) Close() error {
	return nil
}

func (b *Broker) Healthy(ctx context.Context) bool {
	_, err := b.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(b.cfg.QueueURL),
		AttributeNames: nil,
	})
	return err == nil
}
