package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senzing-garage/stream-loader/internal/plugin"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/resolver"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/pkg/messaging"
	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/memory"
)

func newTestHandler(t *testing.T) (messaging.MessageHandler, *resolver.StubEngine, *[]error) {
	t.Helper()
	stub := resolver.NewStubEngine()
	facade := resolver.NewFacade(stub)
	require.NoError(t, facade.Init(context.Background(), "test", "{}", false))

	broker := memory.New(memory.Config{BufferSize: 10})
	failureProducer, err := broker.Producer("failure")
	require.NoError(t, err)
	failureSink := sink.New(failureProducer, "failure")
	infoSink := sink.New(nil, "")

	d := New(facade, plugin.NoopGovernor{}, plugin.IdentityInfoFilter{}, failureSink, infoSink, time.Hour, &Counters{})

	var fatals []error
	handler := Handler(d, EnvelopeConfig{
		DefaultDataSource: "DEFAULT",
		DirectiveKey:      record.DefaultDirectiveKey,
		DefaultAction:     record.ActionAddRecord,
	}, func(err error) { fatals = append(fatals, err) })

	return handler, stub, &fatals
}

func TestHandlerAcksAfterAllRecordsTerminal(t *testing.T) {
	handler, stub, _ := newTestHandler(t)

	err := handler(context.Background(), &messaging.Message{
		Payload: []byte(`[{"RECORD_ID":"1"},{"RECORD_ID":"2"}]`),
	})

	require.NoError(t, err)
	assert.Len(t, stub.AddRecordCalls, 2)
}

func TestHandlerAcksPoisonBody(t *testing.T) {
	handler, stub, _ := newTestHandler(t)

	err := handler(context.Background(), &messaging.Message{Payload: []byte(`not json`)})

	require.NoError(t, err)
	assert.Empty(t, stub.AddRecordCalls)
}

type failingProducer struct{}

func (failingProducer) Publish(context.Context, *messaging.Message) error {
	return errSinkUnavailable
}
func (failingProducer) PublishBatch(context.Context, []*messaging.Message) error { return nil }
func (failingProducer) Close() error                                            { return nil }

var errSinkUnavailable = assert.AnError

func TestHandlerWithholdsAckWhenFailureSinkPublishFails(t *testing.T) {
	stub := resolver.NewStubEngine()
	facade := resolver.NewFacade(stub)
	require.NoError(t, facade.Init(context.Background(), "test", "{}", false))

	failureSink := sink.New(failingProducer{}, "failure")
	infoSink := sink.New(nil, "")

	d := New(facade, plugin.NoopGovernor{}, plugin.IdentityInfoFilter{}, failureSink, infoSink, time.Hour, &Counters{})
	handler := Handler(d, EnvelopeConfig{
		DefaultDataSource: "DEFAULT",
		DirectiveKey:      record.DefaultDirectiveKey,
		DefaultAction:     record.ActionAddRecord,
	}, func(error) {})

	err := handler(context.Background(), &messaging.Message{Payload: []byte(`not json`)})

	require.Error(t, err)
}

func TestHandlerAppliesConfiguredDataSourceDefault(t *testing.T) {
	handler, stub, _ := newTestHandler(t)

	err := handler(context.Background(), &messaging.Message{Payload: []byte(`{"RECORD_ID":"1"}`)})

	require.NoError(t, err)
	require.Len(t, stub.AddRecordCalls, 1)
	assert.Contains(t, stub.AddRecordCalls[0].JSONData, `"DEFAULT"`)
}
