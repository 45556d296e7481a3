package app

import (
	"fmt"
	"strings"

	"github.com/corax/nail/internal/dispatcher"
	"github.com/corax/nail/internal/recorder"
	"github.com/corax/nail/pkg/host"
)

// Commands answered by the runtime.
const (
	CommandMissileTick  = ":MISSILE:TICK:"
	CommandAimingTick   = ":AIMING:TICK:"
	CommandVersion      = ":VERSION:"
	CommandFlightStatus = ":FLIGHT:STATUS:"
	CommandLog          = ":LOG:"
)

// AimingResult is the answer to an aiming tick.
type AimingResult struct {
	Online    bool    `json:"online"`
	Active    bool    `json:"active"`
	Lock      string  `json:"lock,omitempty"`
	Distance  float64 `json:"distance,omitempty"`
	Broadcast int     `json:"broadcast"`
}

// FlightStatus is the answer to a flight status query.
type FlightStatus struct {
	FlightID uint   `json:"flightId"`
	Program  string `json:"program"`
	Phase    string `json:"phase,omitempty"`
	Ticks    uint64 `json:"ticks"`
	Locks    uint64 `json:"locks"`
	Storage  string `json:"storage"`
	Queued   int    `json:"queued"`
	Dropped  uint64 `json:"dropped,omitempty"` // records the backend could not send
}

// dropCounter is implemented by backends that can lose records in transit.
type dropCounter interface {
	Dropped() uint64
}

func (r *Runtime) registerHandlers() {
	d := r.dispatcher

	d.Register(CommandVersion, func(e dispatcher.Event) (any, error) {
		return []string{Version, BuildDate}, nil
	})

	d.Register(CommandLog, func(e dispatcher.Event) (any, error) {
		args := hostArgs(e)
		if len(args) < 3 {
			return nil, fmt.Errorf("%s expects source, level and message", CommandLog)
		}
		r.logs.WriteLog(args[0], strings.Join(args[2:], "|"), args[1])
		return nil, nil
	})

	d.Register(CommandFlightStatus, func(e dispatcher.Event) (any, error) {
		return r.Status(), nil
	})

	if r.missile != nil {
		d.Register(CommandMissileTick, func(e dispatcher.Event) (any, error) {
			argument, source := tickArgs(e)
			report := r.missile.Tick(argument, source)
			r.recorder.ObserveMissile(report)
			return report.Phase.String(), nil
		})
	}

	if r.aiming != nil {
		d.Register(CommandAimingTick, func(e dispatcher.Event) (any, error) {
			argument, source := tickArgs(e)
			report := r.aiming.Tick(argument, source)
			r.recorder.ObserveAiming(report)

			res := AimingResult{
				Online:    report.Err == nil,
				Active:    report.Active,
				Broadcast: report.Broadcast,
			}
			if report.Lock != nil {
				res.Lock = report.Lock.Name
				res.Distance = report.Lock.Distance
			}
			return res, nil
		})
	}
}

// Status reports the current flight.
func (r *Runtime) Status() FlightStatus {
	ticks, locks := r.recorder.Counts()
	s := FlightStatus{
		FlightID: r.recorder.FlightID(),
		Program:  r.opts.Program,
		Ticks:    ticks,
		Locks:    locks,
		Storage:  r.storageType,
		Queued: r.dispatcher.QueueLen(recorder.CommandTick) +
			r.dispatcher.QueueLen(recorder.CommandPhase) +
			r.dispatcher.QueueLen(recorder.CommandLock),
	}
	if r.missile != nil {
		s.Phase = r.missile.Phase().String()
	}
	if dc, ok := r.backend.(dropCounter); ok {
		s.Dropped = dc.Dropped()
	}
	return s
}

// hostArgs returns the call arguments. A raw "command|a|b" call arrives as a single
// argument holding the whole input and is split here.
func hostArgs(e dispatcher.Event) []string {
	if len(e.Args) == 1 && strings.HasPrefix(e.Args[0], e.Command) {
		rest := strings.TrimPrefix(strings.TrimPrefix(e.Args[0], e.Command), "|")
		if rest == "" {
			return nil
		}
		return strings.Split(rest, "|")
	}
	return e.Args
}

// tickArgs extracts the host's run argument and update source.
func tickArgs(e dispatcher.Event) (argument string, source host.UpdateType) {
	args := hostArgs(e)
	if len(args) > 0 {
		argument = args[0]
	}
	if len(args) > 1 {
		source = host.ParseUpdateType(args[1])
	}
	return argument, source
}
