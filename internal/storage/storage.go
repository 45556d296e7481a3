// internal/storage/storage.go
package storage

import "github.com/corax/nail/pkg/core"

// Backend is the interface all flight recorder implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Flight management (StartFlight assigns ID to the passed pointer)
	StartFlight(f *core.Flight) error
	EndFlight() error

	// Telemetry recording
	RecordPhaseChange(p *core.PhaseChange) error
	RecordTick(t *core.FlightTick) error
	RecordTargetLock(l *core.TargetLock) error
}

// Uploadable is an optional interface for storage backends that produce
// a file per flight.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.FlightSummary
}
