// pkg/core/types.go
package core

import "fmt"

// Position3D is a point in the host's world frame, in metres.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsZero reports whether all components are exactly zero.
func (p Position3D) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// String formats the position the way the host prints vectors.
func (p Position3D) String() string {
	return fmt.Sprintf("{X:%g Y:%g Z:%g}", p.X, p.Y, p.Z)
}

// Phase is a stage of the missile mission. Phases only ever move forward during a run.
type Phase uint8

const (
	PhaseNotSetup Phase = iota
	PhaseAwaitingTarget
	PhaseAwaitingRelease
	PhaseLaunching
	PhaseGuiding
)

var phaseNames = [...]string{
	PhaseNotSetup:        "not_setup",
	PhaseAwaitingTarget:  "awaiting_target",
	PhaseAwaitingRelease: "awaiting_release",
	PhaseLaunching:       "launching",
	PhaseGuiding:         "guiding",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ParsePhase converts a phase name back to a Phase.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseNotSetup, fmt.Errorf("unknown phase: %q", s)
}

// MarshalText implements encoding.TextMarshaler so phases serialize by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
