package convert

import (
	"encoding/json"

	"github.com/corax/nail/internal/model"
	"github.com/corax/nail/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToPosition3D converts a geom.Point to a core.Position3D.
// The second result is false for an empty point.
func pointToPosition3D(p geom.Point) (core.Position3D, bool) {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}, false
	}
	return core.Position3D{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}, true
}

// phaseOrDefault parses a stored phase name. Unknown names map to PhaseNotSetup.
func phaseOrDefault(s string) core.Phase {
	p, _ := core.ParsePhase(s)
	return p
}

// FlightToCore converts a GORM Flight to a core.Flight.
func FlightToCore(f model.Flight) core.Flight {
	var settings map[string]any
	if len(f.Settings) > 0 {
		_ = json.Unmarshal(f.Settings, &settings)
	}
	out := core.Flight{
		ID:          f.ID,
		ProgramName: f.ProgramName,
		StartTime:   f.StartTime,
		Settings:    settings,
	}
	if f.EndTime != nil {
		out.EndTime = *f.EndTime
	}
	return out
}

// FlightTickToCore converts a GORM FlightTick to a core.FlightTick.
func FlightTickToCore(t model.FlightTick) core.FlightTick {
	pos, _ := pointToPosition3D(t.Position)
	target, hasTarget := pointToPosition3D(t.Target)
	return core.FlightTick{
		FlightID:     t.FlightID,
		Time:         t.Time,
		Tick:         t.Tick,
		Phase:        phaseOrDefault(t.Phase),
		Position:     pos,
		Target:       target,
		HasTarget:    hasTarget,
		Distance:     t.Distance,
		Traveled:     t.Traveled,
		BearingError: t.BearingError,
		Yaw:          t.Yaw,
		Pitch:        t.Pitch,
		Roll:         t.Roll,
		Locked:       t.Locked,
		Thrust:       t.Thrust,
		Status:       t.Status,
	}
}

// PhaseChangeToCore converts a GORM PhaseChange to a core.PhaseChange.
func PhaseChangeToCore(p model.PhaseChange) core.PhaseChange {
	pos, _ := pointToPosition3D(p.Position)
	return core.PhaseChange{
		FlightID: p.FlightID,
		Time:     p.Time,
		Tick:     p.Tick,
		From:     phaseOrDefault(p.FromPhase),
		To:       phaseOrDefault(p.ToPhase),
		Position: pos,
	}
}

// TargetLockToCore converts a GORM TargetLock to a core.TargetLock.
func TargetLockToCore(l model.TargetLock) core.TargetLock {
	pos, _ := pointToPosition3D(l.Position)
	return core.TargetLock{
		FlightID:     l.FlightID,
		Time:         l.Time,
		Name:         l.Name,
		Type:         l.Type,
		Relationship: l.Relationship,
		Position:     pos,
		Distance:     l.Distance,
	}
}
