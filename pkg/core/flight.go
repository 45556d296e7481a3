// pkg/core/flight.go
package core

import "time"

// Flight is one recorded run of a guidance program, from process start to shutdown.
type Flight struct {
	ID          uint           `json:"id"`
	ProgramName string         `json:"programName"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     time.Time      `json:"endTime"`
	Settings    map[string]any `json:"settings,omitempty"` // snapshot of the tuning values in effect
}

// PhaseChange is recorded each time the mission state machine advances.
type PhaseChange struct {
	FlightID uint       `json:"flightId"`
	Time     time.Time  `json:"time"`
	Tick     uint64     `json:"tick"`
	From     Phase      `json:"from"`
	To       Phase      `json:"to"`
	Position Position3D `json:"position"`
}

// FlightTick is the telemetry for a single guidance tick.
type FlightTick struct {
	FlightID     uint       `json:"flightId"`
	Time         time.Time  `json:"time"`
	Tick         uint64     `json:"tick"`
	Phase        Phase      `json:"phase"`
	Position     Position3D `json:"position"`
	Target       Position3D `json:"target"`
	HasTarget    bool       `json:"hasTarget"`
	Distance     float64    `json:"distance"`     // straight-line distance to target
	Traveled     float64    `json:"traveled"`     // distance from the release position
	BearingError float64    `json:"bearingError"` // radians
	Yaw          float32    `json:"yaw"`
	Pitch        float32    `json:"pitch"`
	Roll         float32    `json:"roll"`
	Locked       bool       `json:"locked"`
	Thrust       float32    `json:"thrust"`
	Status       string     `json:"status,omitempty"` // why the tick stopped, empty when it ran to completion
}

// TargetLock is produced by the aiming program when its camera raycast hits something.
type TargetLock struct {
	FlightID     uint       `json:"flightId"`
	Time         time.Time  `json:"time"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Relationship string     `json:"relationship"`
	Position     Position3D `json:"position"`
	Distance     float64    `json:"distance"`
}

// FlightSummary is the short description of a finished flight used by exporters and the CLI.
type FlightSummary struct {
	FlightID        uint          `json:"flightId"`
	ProgramName     string        `json:"programName"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	Duration        float64       `json:"duration"` // seconds
	Ticks           int           `json:"ticks"`
	FinalPhase      Phase         `json:"finalPhase"`
	Phases          []PhaseChange `json:"phases"`
	TargetLocks     int           `json:"targetLocks"`
	ClosestApproach float64       `json:"closestApproach"` // -1 when no tick had a target
}

// Summarize builds a FlightSummary from a flight's records. Phases are kept in the order given.
func Summarize(f Flight, ticks []FlightTick, phases []PhaseChange, locks []TargetLock) FlightSummary {
	s := FlightSummary{
		FlightID:        f.ID,
		ProgramName:     f.ProgramName,
		StartTime:       f.StartTime,
		EndTime:         f.EndTime,
		Ticks:           len(ticks),
		Phases:          phases,
		TargetLocks:     len(locks),
		ClosestApproach: -1,
	}
	if !f.EndTime.IsZero() {
		s.Duration = f.EndTime.Sub(f.StartTime).Seconds()
	}
	for _, t := range ticks {
		if t.Phase > s.FinalPhase {
			s.FinalPhase = t.Phase
		}
		if t.HasTarget && (s.ClosestApproach < 0 || t.Distance < s.ClosestApproach) {
			s.ClosestApproach = t.Distance
		}
	}
	for _, p := range phases {
		if p.To > s.FinalPhase {
			s.FinalPhase = p.To
		}
	}
	return s
}
