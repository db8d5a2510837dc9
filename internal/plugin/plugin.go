// Package plugin defines the two optional capability interfaces a
// deployment may register at startup: Governor (pre-dispatch rate/backpressure
// hook) and InfoFilter (post-dispatch info-message transform).
//
// The original implementation discovered these by importing a module by
// name at runtime (`SENZING_GOVERNOR`-style config pointing at a Python
// module path). This package re-architects that as explicit interface
// registration: main() constructs a concrete value and passes it to the
// worker pool, so there is a single static dispatch through an interface
// value instead of a dynamic import.
package plugin

import "context"

// Governor is invoked by every worker before each record dispatch. It is
// the extension point for rate limiting and backpressure against
// downstream storage.
type Governor interface {
	Govern(ctx context.Context) error
	Close() error
}

// InfoFilter is invoked on every info blob returned by a *WithInfo
// resolver call, before it is published to the info sink. Returning an
// empty string suppresses publication for that record.
type InfoFilter interface {
	Filter(message string) string
}

// NoopGovernor is the default Governor: it never blocks.
type NoopGovernor struct{}

func (NoopGovernor) Govern(ctx context.Context) error { return nil }
func (NoopGovernor) Close() error                     { return nil }

// IdentityInfoFilter is the default InfoFilter: it passes every message
// through unchanged.
type IdentityInfoFilter struct{}

func (IdentityInfoFilter) Filter(message string) string { return message }
