// Package dispatch implements the backend-agnostic per-record pipeline
// every source consumer drives: directive extraction, resolver invocation,
// configuration-drift detection and single retry, and failure/info
// routing. It holds no broker-specific code, so its behavior is identical
// whether the enclosing delivery came from Kafka, RabbitMQ, SQS, Azure
// Service Bus, or a plain URL/stdin read.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/senzing-garage/stream-loader/internal/plugin"
	"github.com/senzing-garage/stream-loader/internal/record"
	"github.com/senzing-garage/stream-loader/internal/resolver"
	"github.com/senzing-garage/stream-loader/internal/sink"
	"github.com/senzing-garage/stream-loader/pkg/logger"
)

// Counters tracks the monotone queued/processed counts the monitor reports
// rates from. Relaxed semantics are acceptable per the concurrency model:
// atomic increments, no cross-field consistency guarantee.
type Counters struct {
	Queued    atomic.Int64
	Processed atomic.Int64
}

// Dispatcher routes one record at a time through the resolver, per the
// state machine in the component design: IDLE -> CHECKING -> (IDLE |
// REINITIALIZING -> IDLE).
type Dispatcher struct {
	facade   *resolver.Facade
	governor plugin.Governor
	filter   plugin.InfoFilter

	failureSink *sink.Sink
	infoSink    *sink.Sink

	configurationCheckFrequency time.Duration

	mu                sync.Mutex
	lastConfigCheck   time.Time

	counters *Counters
}

// New constructs a Dispatcher. governor and filter may be the plugin
// package's no-op defaults.
func New(facade *resolver.Facade, governor plugin.Governor, filter plugin.InfoFilter, failureSink, infoSink *sink.Sink, configurationCheckFrequency time.Duration, counters *Counters) *Dispatcher {
	return &Dispatcher{
		facade:                      facade,
		governor:                    governor,
		filter:                      filter,
		failureSink:                 failureSink,
		infoSink:                    infoSink,
		configurationCheckFrequency: configurationCheckFrequency,
		lastConfigCheck:             time.Now(),
		counters:                    counters,
	}
}

// Dispatch processes one already-normalized record. terminal reports
// whether the record reached a terminal state (resolver success, or a
// successful failure-sink write); the caller must not ack the enclosing
// delivery when it is false, since a failure-sink write itself failed.
// fatal is non-nil only when the resolver engine reports it was never
// (re)initialized — the caller must stop and let the process exit 1.
//
// defaultAction selects the action used when the record carries no
// directive at all: addRecord for plain consumers, addRecordWithInfo for
// withinfo consumers. A directive that is present but names an action
// outside the closed enumeration is treated as poison and routed to the
// failure sink rather than falling back to defaultAction.
func (d *Dispatcher) Dispatch(ctx context.Context, directiveKey string, rec record.Record, defaultAction record.Action) (terminal bool, fatal error) {
	d.counters.Queued.Add(1)

	d.checkConfigurationDrift(ctx)

	if err := d.governor.Govern(ctx); err != nil {
		logger.L().ErrorContext(ctx, "governor denied dispatch", "error", err)
		return d.routeToFailure(ctx, rec), nil
	}

	action, ok := resolveAction(rec, directiveKey, defaultAction)
	if !ok {
		logger.L().WarnContext(ctx, "unknown directive action", "data_source", rec.DataSource(), "record_id", rec.RecordID())
		return d.routeToFailure(ctx, rec), nil
	}

	jsonData, err := rec.MarshalCanonical()
	if err != nil {
		logger.L().ErrorContext(ctx, "failed to marshal record", "error", err)
		return d.routeToFailure(ctx, rec), nil
	}

	ok, fatal = d.invoke(ctx, action, rec.DataSource(), rec.RecordID(), string(jsonData))
	if fatal != nil {
		return false, fatal
	}
	if ok {
		d.counters.Processed.Add(1)
		return true, nil
	}
	return d.routeToFailure(ctx, rec), nil
}

// resolveAction extracts and strips rec's directive key. A record with no
// directive uses defaultAction; a record whose directive names an action
// outside the closed enumeration is poison (ok=false).
func resolveAction(rec record.Record, directiveKey string, defaultAction record.Action) (record.Action, bool) {
	raw, present := rec.ExtractDirective(directiveKey)
	if !present {
		return defaultAction, true
	}
	return record.ParseDirective(raw)
}

// invoke calls the resolver method for action, retrying exactly once after
// a configuration reinit when the first attempt fails with a generic
// resolver exception and drift is in fact detected.
func (d *Dispatcher) invoke(ctx context.Context, action record.Action, dataSource, recordID, jsonData string) (ok bool, fatal error) {
	info, err := d.call(ctx, action, dataSource, recordID, jsonData)
	if err == nil {
		d.publishInfo(ctx, action, info)
		return true, nil
	}

	switch resolver.Classify(err) {
	case resolver.KindNotInitialized:
		logger.L().ErrorContext(ctx, "resolver not initialized, fatal", "error", err)
		return false, err
	case resolver.KindGenericException:
		drifted, defaultID, driftErr := d.facade.CheckDrift(ctx)
		if driftErr == nil && drifted {
			if reinitErr := d.facade.Reinit(ctx, defaultID); reinitErr == nil {
				info, err = d.call(ctx, action, dataSource, recordID, jsonData)
				if err == nil {
					d.publishInfo(ctx, action, info)
					return true, nil
				}
			}
		}
		logger.L().ErrorContext(ctx, "resolver generic exception, routing to failure sink", "data_source", dataSource, "record_id", recordID, "error", err)
		return false, nil
	default:
		logger.L().ErrorContext(ctx, "resolver error, routing to failure sink", "data_source", dataSource, "record_id", recordID, "error", err)
		return false, nil
	}
}

func (d *Dispatcher) call(ctx context.Context, action record.Action, dataSource, recordID, jsonData string) (string, error) {
	switch action {
	case record.ActionAddRecord:
		return "", d.facade.AddRecord(ctx, dataSource, recordID, jsonData)
	case record.ActionAddRecordWithInfo:
		return d.facade.AddRecordWithInfo(ctx, dataSource, recordID, jsonData)
	case record.ActionDeleteRecord:
		return "", d.facade.DeleteRecord(ctx, dataSource, recordID)
	case record.ActionDeleteRecordWithInfo:
		return d.facade.DeleteRecordWithInfo(ctx, dataSource, recordID)
	case record.ActionReevaluateRecord:
		return "", d.facade.ReevaluateRecord(ctx, dataSource, recordID)
	case record.ActionReevaluateRecordWithInfo:
		return d.facade.ReevaluateRecordWithInfo(ctx, dataSource, recordID)
	default:
		return "", resolver.ErrGenericException(nil)
	}
}

func (d *Dispatcher) publishInfo(ctx context.Context, action record.Action, info string) {
	if !action.WithInfo() || info == "" || !d.infoSink.Configured() {
		return
	}
	filtered := d.filter.Filter(info)
	if filtered == "" {
		return
	}
	if err := d.infoSink.Publish(ctx, []byte(filtered)); err != nil {
		logger.L().ErrorContext(ctx, "failed to publish info message", "error", err)
	}
}

// routeToFailure writes rec to the failure sink. Returns true (terminal)
// only if the write succeeds; the caller must not ack otherwise.
func (d *Dispatcher) routeToFailure(ctx context.Context, rec record.Record) bool {
	payload, err := rec.MarshalCanonical()
	if err != nil {
		payload = []byte(`{"error":"unmarshalable record"}`)
	}
	if err := d.failureSink.Publish(ctx, payload); err != nil {
		logger.L().ErrorContext(ctx, "failed to publish to failure sink, delivery will not be acked", "error", err)
		return false
	}
	return true
}

// checkConfigurationDrift implements the IDLE -> CHECKING -> (IDLE |
// REINITIALIZING -> IDLE) state machine, gated by
// configurationCheckFrequency so every record doesn't pay a resolver round
// trip.
func (d *Dispatcher) checkConfigurationDrift(ctx context.Context) {
	d.mu.Lock()
	due := time.Since(d.lastConfigCheck) > d.configurationCheckFrequency
	if due {
		d.lastConfigCheck = time.Now()
	}
	d.mu.Unlock()
	if !due {
		return
	}

	drifted, defaultID, err := d.facade.CheckDrift(ctx)
	if err != nil {
		logger.L().WarnContext(ctx, "configuration drift check failed", "error", err)
		return
	}
	if !drifted {
		return
	}
	if err := d.facade.Reinit(ctx, defaultID); err != nil {
		logger.L().ErrorContext(ctx, "failed to reinitialize engine after configuration drift", "error", err, "default_config_id", defaultID)
		return
	}
	logger.L().InfoContext(ctx, "reinitialized engine after configuration drift", "active_config_id", defaultID)
}
