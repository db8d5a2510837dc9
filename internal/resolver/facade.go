package resolver

import (
	"context"
	"sync/atomic"

	"github.com/senzing-garage/stream-loader/pkg/logger"
)

// Facade owns the engine handle's lifecycle and caches the active
// configuration ID so dispatchers across every worker goroutine can check
// for drift without a resolver round trip on every record.
type Facade struct {
	engine Engine

	activeConfigID atomic.Int64
	primed         atomic.Bool
}

// NewFacade wraps an already-constructed Engine. The caller is
// responsible for calling Init before first use.
func NewFacade(engine Engine) *Facade {
	return &Facade{engine: engine}
}

// Init initializes the underlying engine and caches its resulting active
// configuration ID.
func (f *Facade) Init(ctx context.Context, name, configJSON string, debug bool) error {
	if err := f.engine.Init(ctx, name, configJSON, debug); err != nil {
		return ErrNotInitialized(err)
	}
	id, err := f.engine.GetActiveConfigID(ctx)
	if err != nil {
		return ErrNotInitialized(err)
	}
	f.activeConfigID.Store(id)
	return nil
}

// PrimeEngine issues the one-time warm-up call (SENZING_PRIME_ENGINE),
// idempotent: repeat calls are harmless no-ops for callers that don't
// track whether it already ran.
func (f *Facade) PrimeEngine(ctx context.Context) error {
	if f.primed.Swap(true) {
		return nil
	}
	return f.engine.PrimeEngine(ctx)
}

// ActiveConfigID returns the last-known active configuration ID without a
// resolver round trip.
func (f *Facade) ActiveConfigID() int64 {
	return f.activeConfigID.Load()
}

// CheckDrift compares the resolver's current default configuration ID
// against the cached active ID. drifted is true when they differ.
func (f *Facade) CheckDrift(ctx context.Context) (drifted bool, defaultID int64, err error) {
	defaultID, err = f.engine.GetDefaultConfigID(ctx)
	if err != nil {
		return false, 0, err
	}
	return defaultID != f.activeConfigID.Load(), defaultID, nil
}

// Reinit reinitializes the engine to configID and updates the cached
// active ID on success.
func (f *Facade) Reinit(ctx context.Context, configID int64) error {
	if err := f.engine.Reinit(ctx, configID); err != nil {
		return err
	}
	f.activeConfigID.Store(configID)
	return nil
}

// AddRecord, DeleteRecord, ReevaluateRecord and their *WithInfo siblings
// pass straight through to the engine; the dispatcher is responsible for
// drift detection and retry, not the facade.

func (f *Facade) AddRecord(ctx context.Context, dataSource, recordID, jsonData string) error {
	return f.engine.AddRecord(ctx, dataSource, recordID, jsonData)
}

func (f *Facade) AddRecordWithInfo(ctx context.Context, dataSource, recordID, jsonData string) (string, error) {
	return f.engine.AddRecordWithInfo(ctx, dataSource, recordID, jsonData)
}

func (f *Facade) DeleteRecord(ctx context.Context, dataSource, recordID string) error {
	return f.engine.DeleteRecord(ctx, dataSource, recordID)
}

func (f *Facade) DeleteRecordWithInfo(ctx context.Context, dataSource, recordID string) (string, error) {
	return f.engine.DeleteRecordWithInfo(ctx, dataSource, recordID)
}

func (f *Facade) ReevaluateRecord(ctx context.Context, dataSource, recordID string) error {
	return f.engine.ReevaluateRecord(ctx, dataSource, recordID)
}

func (f *Facade) ReevaluateRecordWithInfo(ctx context.Context, dataSource, recordID string) (string, error) {
	return f.engine.ReevaluateRecordWithInfo(ctx, dataSource, recordID)
}

func (f *Facade) Stats(ctx context.Context) (string, error) {
	return f.engine.Stats(ctx)
}

func (f *Facade) License(ctx context.Context) (string, error) {
	return f.engine.License(ctx)
}

// Destroy tears down the engine handle. Safe to call once, on the main
// goroutine, after every worker has joined.
func (f *Facade) Destroy(ctx context.Context) error {
	logger.L().InfoContext(ctx, "destroying resolver engine handle")
	return f.engine.Destroy(ctx)
}
