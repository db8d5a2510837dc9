package sqs

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/senzing-garage/stream-loader/pkg/messaging"
)

type producer struct {
	client   *sqs.Client
	queueURL string
}

func (p *producer) Publish(ctx context.Context, msg *messaging.Message) error {
	attrs := make(map[string]types.MessageAttributeValue, len(msg.Headers))
	for k, v := range msg.Headers {
		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	queueURL := p.queueURL
	if msg.Topic != "" {
		queueURL = msg.Topic
	}

	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(string(msg.Payload)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return messaging.ErrPublishFailed(err)
	}
	return nil
}

func (p *producer) PublishBatch(ctx context.Context, msgs []*messaging.Message) error {
	// SQS SendMessageBatch caps at 10 entries per call.
	const maxBatch = 10
	for start := 0; start < len(msgs); start += maxBatch {
		end := start + maxBatch
		if end > len(msgs) {
			end = len(msgs)
		}
		if err := p.sendBatch(ctx, msgs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *producer) sendBatch(ctx context.Context, msgs []*messaging.Message) error {
	entries := make([]types.SendMessageBatchRequestEntry, len(msgs))
	for i, msg := range msgs {
		entries[i] = types.SendMessageBatchRequestEntry{
			Id:          aws.String(strconv.Itoa(i)),
			MessageBody: aws.String(string(msg.Payload)),
		}
	}

	out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(p.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return messaging.ErrPublishFailed(err)
	}
	if len(out.Failed) > 0 {
		return messaging.ErrPublishFailed(nil)
	}
	return nil
}

func (p *producer) Close() error { return nil }
