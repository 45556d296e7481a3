// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/corax/nail/internal/config"
	"github.com/corax/nail/pkg/core"
)

// Backend stores flight telemetry in memory and exports it to JSON when the flight ends
type Backend struct {
	cfg    config.MemoryConfig
	flight *core.Flight

	ticks  []core.FlightTick
	phases []core.PhaseChange
	locks  []core.TargetLock

	idCounter      uint
	lastExportPath string
	lastSummary    core.FlightSummary
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartFlight begins recording a new flight and assigns its ID
func (b *Backend) StartFlight(f *core.Flight) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	f.ID = b.idCounter
	b.flight = f

	// Reset all collections
	b.ticks = nil
	b.phases = nil
	b.locks = nil

	return nil
}

// EndFlight finalizes and exports the flight data
func (b *Backend) EndFlight() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return fmt.Errorf("no flight started")
	}
	return b.exportJSON()
}

// RecordTick records one guidance tick
func (b *Backend) RecordTick(t *core.FlightTick) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ticks = append(b.ticks, *t)
	return nil
}

// RecordPhaseChange records a state machine transition
func (b *Backend) RecordPhaseChange(p *core.PhaseChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.phases = append(b.phases, *p)
	return nil
}

// RecordTargetLock records a camera lock
func (b *Backend) RecordTargetLock(l *core.TargetLock) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.locks = append(b.locks, *l)
	return nil
}

// Summary summarises the flight recorded so far.
func (b *Backend) Summary() core.FlightSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.flight == nil {
		return core.Summarize(core.Flight{}, nil, nil, nil)
	}
	return core.Summarize(*b.flight, b.ticks, b.phases, b.locks)
}

// Ticks returns a copy of the recorded ticks
func (b *Backend) Ticks() []core.FlightTick {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FlightTick(nil), b.ticks...)
}

// GetExportedFilePath returns the path of the last export, empty before the first one
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns the summary written with the last export
func (b *Backend) GetExportMetadata() core.FlightSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSummary
}
