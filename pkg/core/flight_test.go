package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := Flight{ID: 4, ProgramName: "missile", StartTime: start, EndTime: start.Add(90 * time.Second)}
	ticks := []FlightTick{
		{Tick: 1, Phase: PhaseAwaitingRelease, HasTarget: true, Distance: 900},
		{Tick: 2, Phase: PhaseLaunching, HasTarget: true, Distance: 880},
		{Tick: 3, Phase: PhaseGuiding, HasTarget: true, Distance: 120.5},
		{Tick: 4, Phase: PhaseGuiding},
	}
	phases := []PhaseChange{
		{From: PhaseNotSetup, To: PhaseAwaitingRelease},
		{From: PhaseAwaitingRelease, To: PhaseLaunching},
		{From: PhaseLaunching, To: PhaseGuiding},
	}

	s := Summarize(f, ticks, phases, []TargetLock{{Name: "Rock"}})

	assert.Equal(t, uint(4), s.FlightID)
	assert.Equal(t, "missile", s.ProgramName)
	assert.InDelta(t, 90.0, s.Duration, 1e-9)
	assert.Equal(t, 4, s.Ticks)
	assert.Equal(t, PhaseGuiding, s.FinalPhase)
	assert.Len(t, s.Phases, 3)
	assert.Equal(t, 1, s.TargetLocks)
	assert.InDelta(t, 120.5, s.ClosestApproach, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(Flight{ID: 1}, nil, nil, nil)

	assert.Equal(t, 0, s.Ticks)
	assert.Equal(t, PhaseNotSetup, s.FinalPhase)
	assert.Equal(t, -1.0, s.ClosestApproach)
	assert.Zero(t, s.Duration)
}
