// Package recorder turns controller tick reports into flight telemetry and hands it to a
// storage backend through buffered dispatcher commands, so recording never blocks a tick.
package recorder

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/corax/nail/internal/aiming"
	"github.com/corax/nail/internal/dispatcher"
	"github.com/corax/nail/internal/storage"
	"github.com/corax/nail/internal/vecmath"
	"github.com/corax/nail/pkg/core"
)

// Commands handled by the recorder.
const (
	CommandTick  = ":RECORD:TICK:"
	CommandPhase = ":RECORD:PHASE:"
	CommandLock  = ":RECORD:LOCK:"
)

// DefaultBufferSize is used when RegisterHandlers is given a non-positive size.
const DefaultBufferSize = 4096

// Recorder owns the current flight and tracks the last phase seen so phase changes can be
// derived from consecutive tick reports.
type Recorder struct {
	backend    storage.Backend
	logger     *slog.Logger
	dispatcher *dispatcher.Dispatcher

	mu        sync.Mutex
	flight    *core.Flight
	lastPhase core.Phase
	ticks     uint64
	locks     uint64
}

// New creates a recorder writing to backend.
func New(backend storage.Backend, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backend: backend, logger: logger}
}

// RegisterHandlers registers the buffered record commands with d. Observe* methods do
// nothing until this has been called.
func (r *Recorder) RegisterHandlers(d *dispatcher.Dispatcher, bufferSize int) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	r.dispatcher = d

	d.Register(CommandTick, func(e dispatcher.Event) (any, error) {
		t, ok := e.Payload.(*core.FlightTick)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected payload %T", CommandTick, e.Payload)
		}
		return nil, r.backend.RecordTick(t)
	}, dispatcher.Buffered(bufferSize))

	d.Register(CommandPhase, func(e dispatcher.Event) (any, error) {
		p, ok := e.Payload.(*core.PhaseChange)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected payload %T", CommandPhase, e.Payload)
		}
		return nil, r.backend.RecordPhaseChange(p)
	}, dispatcher.Buffered(bufferSize), dispatcher.Logged())

	d.Register(CommandLock, func(e dispatcher.Event) (any, error) {
		l, ok := e.Payload.(*core.TargetLock)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected payload %T", CommandLock, e.Payload)
		}
		return nil, r.backend.RecordTargetLock(l)
	}, dispatcher.Buffered(bufferSize))
}

// Start begins a flight. The backend assigns f.ID.
func (r *Recorder) Start(f *core.Flight) error {
	if err := r.backend.StartFlight(f); err != nil {
		return fmt.Errorf("start flight: %w", err)
	}
	r.mu.Lock()
	r.flight = f
	r.lastPhase = core.PhaseNotSetup
	r.ticks = 0
	r.locks = 0
	r.mu.Unlock()
	r.logger.Info("flight started", "flightId", f.ID, "program", f.ProgramName)
	return nil
}

// End finishes the current flight.
func (r *Recorder) End() error {
	r.mu.Lock()
	f := r.flight
	r.flight = nil
	r.mu.Unlock()
	if f == nil {
		return nil
	}
	if err := r.backend.EndFlight(); err != nil {
		return fmt.Errorf("end flight %d: %w", f.ID, err)
	}
	r.logger.Info("flight ended", "flightId", f.ID)
	return nil
}

// FlightID returns the current flight's ID, or 0 when no flight is running.
func (r *Recorder) FlightID() uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil {
		return 0
	}
	return r.flight.ID
}

// Phase is the last phase recorded.
func (r *Recorder) Phase() core.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPhase
}

// Counts returns how many ticks and target locks were queued for the current flight.
func (r *Recorder) Counts() (ticks, locks uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks, r.locks
}

// ObserveMissile queues the tick record for report, preceded by a phase change record when
// the phase differs from the previous report.
func (r *Recorder) ObserveMissile(report core.TickReport) {
	r.mu.Lock()
	if r.flight == nil || r.dispatcher == nil {
		r.mu.Unlock()
		return
	}
	tick, change := FromReport(r.flight.ID, report, r.lastPhase)
	r.lastPhase = report.Phase
	r.ticks++
	r.mu.Unlock()

	if change != nil {
		r.logger.Info("phase changed", "from", change.From.String(), "to", change.To.String(), "tick", change.Tick)
		r.dispatch(CommandPhase, change)
	}
	r.dispatch(CommandTick, &tick)
}

// ObserveAiming queues a target lock when the aiming tick hit something.
func (r *Recorder) ObserveAiming(report aiming.Report) {
	if report.Lock == nil {
		return
	}
	r.mu.Lock()
	if r.flight == nil || r.dispatcher == nil {
		r.mu.Unlock()
		return
	}
	lock := FromLock(r.flight.ID, report)
	r.locks++
	r.mu.Unlock()

	r.dispatch(CommandLock, &lock)
}

func (r *Recorder) dispatch(command string, payload any) {
	_, err := r.dispatcher.Dispatch(dispatcher.Event{Command: command, Payload: payload})
	if err != nil {
		r.logger.Warn("dropped flight record", "command", command, "error", err)
	}
}

// FromReport converts a tick report into a FlightTick. change is non-nil when report.Phase
// differs from prev.
func FromReport(flightID uint, report core.TickReport, prev core.Phase) (tick core.FlightTick, change *core.PhaseChange) {
	tick = core.FlightTick{
		FlightID:  flightID,
		Time:      report.Time,
		Tick:      report.Tick,
		Phase:     report.Phase,
		Position:  report.Position,
		Target:    report.Target,
		HasTarget: report.HasTarget,
		Distance:  report.Distance,
		Traveled:  report.Traveled,
		Thrust:    report.Thrust,
	}
	if s := report.Steering; s != nil {
		tick.BearingError = s.BearingError
		tick.Yaw = s.Yaw
		tick.Pitch = s.Pitch
		tick.Roll = s.Roll
		tick.Locked = s.Locked
	}
	if report.Err != nil {
		tick.Status = report.Err.Error()
	}

	if report.Phase != prev {
		change = &core.PhaseChange{
			FlightID: flightID,
			Time:     report.Time,
			Tick:     report.Tick,
			From:     prev,
			To:       report.Phase,
			Position: report.Position,
		}
	}
	return tick, change
}

// FromLock converts an aiming report with a lock into a TargetLock.
func FromLock(flightID uint, report aiming.Report) core.TargetLock {
	l := report.Lock
	return core.TargetLock{
		FlightID:     flightID,
		Time:         report.Time,
		Name:         l.Name,
		Type:         l.Type.String(),
		Relationship: l.Relationship,
		Position:     vecmath.ToPosition(l.Position),
		Distance:     l.Distance,
	}
}
