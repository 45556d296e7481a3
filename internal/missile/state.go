package missile

import (
	"github.com/corax/nail/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// State is the mission's progress. The phases before release are re-derived every tick;
// from Launching on the phase only moves forward.
type State struct {
	phase   core.Phase
	release mgl64.Vec3
	armed   bool
}

func (s State) Phase() core.Phase { return s.phase }

// ReleasePosition is where the missile left its launcher. ok is false before release.
func (s State) ReleasePosition() (pos mgl64.Vec3, ok bool) {
	return s.release, s.phase >= core.PhaseLaunching
}

// Armed reports whether warheads were armed.
func (s State) Armed() bool { return s.armed }

// Released reports whether the release position has been latched.
func (s State) Released() bool { return s.phase >= core.PhaseLaunching }

// LaunchCompleted reports whether the missile has flown clear of the launcher.
func (s State) LaunchCompleted() bool { return s.phase >= core.PhaseGuiding }

// enter moves to p unless the missile is already launched and p would go back.
func (s *State) enter(p core.Phase) {
	if s.phase >= core.PhaseLaunching && p < s.phase {
		return
	}
	s.phase = p
}

// Release latches pos as the release position on the first call only.
func (s *State) Release(pos mgl64.Vec3) bool {
	if s.Released() {
		return false
	}
	s.release = pos
	s.enter(core.PhaseLaunching)
	return true
}

// CompleteLaunch latches the launch once traveled reaches threshold. Once latched it stays
// latched whatever distance is passed.
func (s *State) CompleteLaunch(traveled, threshold float64) bool {
	if s.LaunchCompleted() {
		return true
	}
	if !s.Released() || traveled < threshold {
		return false
	}
	s.enter(core.PhaseGuiding)
	return true
}

func (s *State) markArmed() { s.armed = true }
