package missile

import (
	"github.com/corax/nail/internal/vecmath"
	"github.com/corax/nail/pkg/host"
	"github.com/go-gl/mathgl/mgl64"
)

// Tracker reads the target position the aiming system writes into the program block's custom
// data. Nothing is cached: the field may be rewritten between any two ticks.
type Tracker struct {
	Source host.ProgrammableBlock
}

// Target parses the current target. It returns ErrNoTarget when the field is empty and a
// *ParseError when it holds anything other than a position, whitespace included.
func (t Tracker) Target() (mgl64.Vec3, error) {
	if t.Source == nil {
		return mgl64.Vec3{}, ErrNoTarget
	}
	raw := t.Source.CustomData()
	if raw == "" {
		return mgl64.Vec3{}, ErrNoTarget
	}

	v, err := vecmath.ParseVector(raw)
	if err != nil {
		return mgl64.Vec3{}, &ParseError{Raw: raw}
	}
	return v, nil
}
