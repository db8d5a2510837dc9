package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senzing-garage/stream-loader/internal/plugin"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/resolver"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/pkg/messaging/adapters/memory"
)

func newTestDispatcher(t *testing.T, stub *resolver.StubEngine) (*Dispatcher, *memory.Broker) {
	t.Helper()
	facade := resolver.NewFacade(stub)
	require.NoError(t, facade.Init(context.Background(), "test", "{}", false))

	broker := memory.New(memory.Config{BufferSize: 10})
	failureProducer, err := broker.Producer("failure")
	require.NoError(t, err)
	infoProducer, err := broker.Producer("info")
	require.NoError(t, err)

	failureSink := sink.New(failureProducer, "failure")
	infoSink := sink.New(infoProducer, "info")

	return New(facade, plugin.NoopGovernor{}, plugin.IdentityInfoFilter{}, failureSink, infoSink, time.Hour, &Counters{}), broker
}

func TestDispatchAddRecordSuccess(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	rec := record.Record{record.KeyDataSource: "TEST", record.KeyRecordID: "1"}
	terminal, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecord)

	require.NoError(t, fatal)
	assert.True(t, terminal)
	require.Len(t, stub.AddRecordCalls, 1)
	assert.Equal(t, "TEST", stub.AddRecordCalls[0].DataSource)
}

func TestDispatchUsesDefaultActionWhenDirectiveAbsent(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	rec := record.Record{record.KeyRecordID: "1"}
	terminal, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecordWithInfo)

	require.NoError(t, fatal)
	assert.True(t, terminal)
	assert.Len(t, stub.AddRecordCalls, 1)
}

func TestDispatchExplicitDirectiveOverridesDefault(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	rec := record.Record{
		record.KeyRecordID:        "1",
		record.DefaultDirectiveKey: map[string]any{"action": "deleteRecord"},
	}
	terminal, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecord)

	require.NoError(t, fatal)
	assert.True(t, terminal)
	assert.Len(t, stub.DeleteRecordCalls, 1)
	assert.Empty(t, stub.AddRecordCalls)
}

func TestDispatchUnknownDirectiveRoutesToFailureSink(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	rec := record.Record{
		record.KeyRecordID:        "1",
		record.DefaultDirectiveKey: map[string]any{"action": "bogusAction"},
	}
	terminal, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecord)

	require.NoError(t, fatal)
	assert.True(t, terminal) // terminal because the failure-sink write itself succeeded
	assert.Empty(t, stub.AddRecordCalls)
}

func TestDispatchNotInitializedIsFatal(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	stub.FailNext = resolver.ErrNotInitialized(errors.New("handle destroyed"))

	rec := record.Record{record.KeyRecordID: "1"}
	_, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecord)

	require.Error(t, fatal)
	assert.Equal(t, resolver.KindNotInitialized, resolver.Classify(fatal))
}

func TestDispatchGenericExceptionRetriesOnceAfterDrift(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	stub.FailNext = resolver.ErrGenericException(errors.New("transient"))
	stub.SetDefaultConfigID(2) // drift present, so the retry path fires

	rec := record.Record{record.KeyRecordID: "1"}
	terminal, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecord)

	require.NoError(t, fatal)
	assert.True(t, terminal)
	assert.Len(t, stub.AddRecordCalls, 1) // first call failed, retry succeeded
}

func TestDispatchGenericExceptionWithoutDriftGoesToFailureSink(t *testing.T) {
	stub := resolver.NewStubEngine()
	d, _ := newTestDispatcher(t, stub)

	stub.FailNext = resolver.ErrGenericException(errors.New("transient"))

	rec := record.Record{record.KeyRecordID: "1"}
	terminal, fatal := d.Dispatch(context.Background(), record.DefaultDirectiveKey, rec, record.ActionAddRecord)

	require.NoError(t, fatal)
	assert.True(t, terminal) // routed to failure sink, which itself succeeded
	assert.Empty(t, stub.AddRecordCalls)
}
