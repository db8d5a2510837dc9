package sqs

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

func TestToMessageCopiesBodyAttributesAndReceiptHandle(t *testing.T) {
	sqsMsg := types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{"RECORD_ID":"1"}`),
		ReceiptHandle: aws.String("receipt-1"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"senzingStreamLoader": {StringValue: aws.String(`{"action":"addRecord"}`)},
		},
	}

	msg := toMessage(sqsMsg)

	if msg.ID != "msg-1" {
		t.Fatalf("got id %q", msg.ID)
	}
	if string(msg.Payload) != `{"RECORD_ID":"1"}` {
		t.Fatalf("got payload %q", msg.Payload)
	}
	if msg.Metadata.ReceiptHandle != "receipt-1" {
		t.Fatalf("got receipt handle %q", msg.Metadata.ReceiptHandle)
	}
	if msg.Headers["senzingStreamLoader"] != `{"action":"addRecord"}` {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}
}

func TestClampMax(t *testing.T) {
	cases := map[int32]int32{0: 1, -5: 1, 1: 1, 10: 10, 11: 10, 50: 10}
	for in, want := range cases {
		if got := clampMax(in); got != want {
			t.Fatalf("clampMax(%d) = %d, want %d", in, got, want)
		}
	}
}
