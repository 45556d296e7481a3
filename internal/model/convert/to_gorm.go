// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"time"

	"github.com/corax/nail/internal/model"
	"github.com/corax/nail/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// position3DToPoint converts a core.Position3D to an XYZ geom.Point
func position3DToPoint(p core.Position3D) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Z: p.Z, Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// settingsToJSON converts a settings snapshot to datatypes.JSON for DB storage.
func settingsToJSON(settings map[string]any) datatypes.JSON {
	if len(settings) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToFlight converts a core.Flight to a GORM model.Flight.
// A zero EndTime is stored as NULL.
func CoreToFlight(f core.Flight) model.Flight {
	var end *time.Time
	if !f.EndTime.IsZero() {
		t := f.EndTime
		end = &t
	}
	return model.Flight{
		ID:          f.ID,
		ProgramName: f.ProgramName,
		StartTime:   f.StartTime,
		EndTime:     end,
		Settings:    settingsToJSON(f.Settings),
	}
}

// CoreToFlightTick converts a core.FlightTick to a GORM model.FlightTick.
// The target point is left empty when the tick had no target.
func CoreToFlightTick(t core.FlightTick) model.FlightTick {
	target := geom.Point{}
	if t.HasTarget {
		target = position3DToPoint(t.Target)
	}
	return model.FlightTick{
		FlightID:     t.FlightID,
		Time:         t.Time,
		Tick:         t.Tick,
		Phase:        t.Phase.String(),
		Position:     position3DToPoint(t.Position),
		Target:       target,
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

// CoreToPhaseChange converts a core.PhaseChange to a GORM model.PhaseChange.
func CoreToPhaseChange(p core.PhaseChange) model.PhaseChange {
	return model.PhaseChange{
		FlightID:  p.FlightID,
		Time:      p.Time,
		Tick:      p.Tick,
		FromPhase: p.From.String(),
		ToPhase:   p.To.String(),
		Position:  position3DToPoint(p.Position),
	}
}

// CoreToTargetLock converts a core.TargetLock to a GORM model.TargetLock.
func CoreToTargetLock(l core.TargetLock) model.TargetLock {
	return model.TargetLock{
		FlightID:     l.FlightID,
		Time:         l.Time,
		Name:         l.Name,
		Type:         l.Type,
		Relationship: l.Relationship,
		Position:     position3DToPoint(l.Position),
		Distance:     l.Distance,
	}
}
