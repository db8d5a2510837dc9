// Package resolver wraps the embedded entity-resolution engine behind a
// narrow typed interface, hiding version differences between the engine
// library's generations and owning its init/destroy lifecycle.
//
// The engine itself is an external collaborator out of this module's
// scope (it is a proprietary, typically cgo-backed SDK): this package
// defines the contract the facade drives and ships an in-memory Engine
// (see stub.go) used by tests and as a safe default when no production
// engine has been wired. A real deployment supplies its own Engine
// implementation — e.g. a thin adapter over the vendor SDK — via
// NewFacade.
package resolver

import "context"

// Engine is the narrow surface the dispatcher and worker pool depend on.
// Every method corresponds 1:1 to an operation named in the
// specification's resolver facade component.
type Engine interface {
	Init(ctx context.Context, name, configJSON string, debug bool) error

	AddRecord(ctx context.Context, dataSource, recordID, jsonData string) error
	AddRecordWithInfo(ctx context.Context, dataSource, recordID, jsonData string) (info string, err error)
	DeleteRecord(ctx context.Context, dataSource, recordID string) error
	DeleteRecordWithInfo(ctx context.Context, dataSource, recordID string) (info string, err error)
	ReevaluateRecord(ctx context.Context, dataSource, recordID string) error
	ReevaluateRecordWithInfo(ctx context.Context, dataSource, recordID string) (info string, err error)

	// GetActiveConfigID returns the configuration ID the engine handle is
	// currently running with.
	GetActiveConfigID(ctx context.Context) (int64, error)

	// GetDefaultConfigID returns the configuration ID currently marked
	// default in the engine's configuration store. Differs from
	// GetActiveConfigID exactly when configuration drift has occurred.
	GetDefaultConfigID(ctx context.Context) (int64, error)

	// Reinit swaps the running engine handle to the given configuration
	// ID. Idempotent: calling it repeatedly with the same ID that is
	// already active is a no-op from the caller's perspective.
	Reinit(ctx context.Context, configID int64) error

	PrimeEngine(ctx context.Context) error
	Stats(ctx context.Context) (statsJSON string, err error)
	License(ctx context.Context) (licenseJSON string, err error)

	Destroy(ctx context.Context) error
}
