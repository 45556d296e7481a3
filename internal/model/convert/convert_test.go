package convert

import (
	"testing"
	"time"

	"github.com/corax/nail/internal/model"
	"github.com/corax/nail/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition3DToPoint(t *testing.T) {
	pos := core.Position3D{X: 100.5, Y: 200.5, Z: -50.0}
	pt := position3DToPoint(pos)

	coord, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 100.5, coord.XY.X)
	assert.Equal(t, 200.5, coord.XY.Y)
	assert.Equal(t, -50.0, coord.Z)
}

func TestPointToPosition3D_Empty(t *testing.T) {
	_, ok := pointToPosition3D(geom.Point{})
	assert.False(t, ok)
}

func TestCoreToFlight(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("open flight", func(t *testing.T) {
		f := CoreToFlight(core.Flight{ID: 3, ProgramName: "missile", StartTime: start})
		assert.Equal(t, uint(3), f.ID)
		assert.Nil(t, f.EndTime)
		assert.JSONEq(t, `{}`, string(f.Settings))
	})

	t.Run("closed flight with settings", func(t *testing.T) {
		f := CoreToFlight(core.Flight{
			ProgramName: "missile",
			StartTime:   start,
			EndTime:     start.Add(time.Minute),
			Settings:    map[string]any{"launchDistance": 30.0},
		})
		require.NotNil(t, f.EndTime)
		assert.Equal(t, start.Add(time.Minute), *f.EndTime)
		assert.JSONEq(t, `{"launchDistance":30}`, string(f.Settings))
	})
}

func TestFlightRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := core.Flight{
		ID:          9,
		ProgramName: "aiming",
		StartTime:   start,
		EndTime:     start.Add(5 * time.Second),
		Settings:    map[string]any{"groupTag": "AimingSys"},
	}

	back := FlightToCore(CoreToFlight(original))

	assert.Equal(t, original, back)
}

func TestCoreToFlightTick(t *testing.T) {
	tick := core.FlightTick{
		FlightID:  2,
		Tick:      17,
		Phase:     core.PhaseGuiding,
		Position:  core.Position3D{X: 1, Y: 2, Z: 3},
		Target:    core.Position3D{X: 10, Y: 20, Z: 30},
		HasTarget: true,
		Distance:  33.67,
		Yaw:       0.5,
		Locked:    true,
		Thrust:    1,
	}

	g := CoreToFlightTick(tick)
	assert.Equal(t, "guiding", g.Phase)
	assert.False(t, g.Target.IsEmpty())

	back := FlightTickToCore(g)
	assert.Equal(t, tick, back)
}

func TestCoreToFlightTick_NoTarget(t *testing.T) {
	g := CoreToFlightTick(core.FlightTick{Phase: core.PhaseAwaitingTarget, Status: "no target"})

	assert.True(t, g.Target.IsEmpty())
	back := FlightTickToCore(g)
	assert.False(t, back.HasTarget)
	assert.Equal(t, core.PhaseAwaitingTarget, back.Phase)
	assert.Equal(t, "no target", back.Status)
}

func TestPhaseChangeConversion(t *testing.T) {
	p := core.PhaseChange{
		FlightID: 1,
		Tick:     40,
		From:     core.PhaseLaunching,
		To:       core.PhaseGuiding,
		Position: core.Position3D{X: 0, Y: 0, Z: -31},
	}

	g := CoreToPhaseChange(p)
	assert.Equal(t, "launching", g.FromPhase)
	assert.Equal(t, "guiding", g.ToPhase)
	assert.Equal(t, p, PhaseChangeToCore(g))
}

func TestPhaseChangeToCore_UnknownPhase(t *testing.T) {
	p := PhaseChangeToCore(model.PhaseChange{FromPhase: "warp", ToPhase: "guiding"})

	assert.Equal(t, core.PhaseNotSetup, p.From)
	assert.Equal(t, core.PhaseGuiding, p.To)
}

func TestTargetLockConversion(t *testing.T) {
	l := core.TargetLock{
		FlightID:     5,
		Name:         "Large Grid 4410",
		Type:         "LargeGrid",
		Relationship: "Enemies",
		Position:     core.Position3D{X: 100, Y: 0, Z: -1000},
		Distance:     1004.987562,
	}

	g := CoreToTargetLock(l)
	assert.Equal(t, "LargeGrid", g.Type)
	assert.Equal(t, l, TargetLockToCore(g))
}
