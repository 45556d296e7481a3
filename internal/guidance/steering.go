// Package guidance turns a bearing error into gyroscope rate commands.
//
// The controller is purely proportional on a single rotation axis: the command points along
// the shortest rotation from the current heading to the target direction and its magnitude
// scales linearly with the angle between them.
package guidance

import (
	"math"

	"github.com/corax/nail/internal/vecmath"
	"github.com/corax/nail/pkg/host"
	"github.com/go-gl/mathgl/mgl64"
)

// Tuning holds the steering constants.
type Tuning struct {
	MinAngle    float64 // bearing error below which the heading counts as locked, radians
	Coefficient float64 // proportional gain applied to the normalised error
	MinRate     float64 // command floor, radians per second
	MaxRate     float64 // command ceiling, radians per second
}

// DefaultTuning returns the tuning the missiles fly with unless configured otherwise.
func DefaultTuning() Tuning {
	return Tuning{
		MinAngle:    0.01,
		Coefficient: 0.9,
		MinRate:     0.01,
		MaxRate:     2 * math.Pi,
	}
}

// Input is everything the steering law needs for one tick.
type Input struct {
	Position  mgl64.Vec3 // navigation reference centre of mass
	NavFrame  mgl64.Mat3 // navigation reference orientation
	GyroFrame mgl64.Mat3 // gyroscope orientation
	Target    mgl64.Vec3
}

// Command is the output of one steering step.
type Command struct {
	Axis      mgl64.Vec3 // rotation axis in the gyroscope frame, not normalised
	Angle     float64    // bearing error, radians in [0, π]
	Magnitude float64    // commanded angular speed, radians per second
	Yaw       float32
	Pitch     float32
	Roll      float32
	Locked    bool // bearing error is below the lock threshold
}

// Steer computes the rate command that turns the heading toward the target.
//
// The current heading is expressed in the navigation reference's own frame while the
// target direction is expressed in the gyroscope's frame. The two only agree when the
// gyroscope is installed aligned with the navigation reference.
func Steer(in Input, t Tuning) Command {
	targetDir := vecmath.Normalize(in.Target.Sub(in.Position))

	localCurrent := vecmath.ToLocal(in.NavFrame, vecmath.Forward(in.NavFrame))
	localTarget := vecmath.ToLocal(in.GyroFrame, targetDir)

	axis := localCurrent.Cross(localTarget)
	dot := localCurrent.Dot(localTarget)
	angle := BearingAngle(axis.Len(), dot)

	magnitude := Magnitude(angle, t)

	var rate mgl64.Vec3
	if axisLen := axis.Len(); axisLen > 0 {
		rate = axis.Mul(magnitude / axisLen)
	} else if dot < 0 {
		// Target straight behind: every perpendicular axis is as short, turn about local up.
		rate = mgl64.Vec3{0, magnitude, 0}
	}

	return Command{
		Axis:      axis,
		Angle:     angle,
		Magnitude: magnitude,
		Yaw:       -float32(rate.Y()),
		Pitch:     -float32(rate.X()),
		Roll:      -float32(rate.Z()),
		Locked:    angle < t.MinAngle,
	}
}

// BearingAngle recovers the angle between two unit vectors from the length of their
// cross product and the sign of their dot product.
func BearingAngle(sinMagnitude, dot float64) float64 {
	angle := math.Atan2(sinMagnitude, math.Sqrt(math.Max(0, 1-sinMagnitude*sinMagnitude)))
	if dot < 0 {
		angle = math.Pi - angle
	}
	return angle
}

// Magnitude maps a bearing error to an angular speed, clamped to [MinRate, MaxRate].
func Magnitude(angle float64, t Tuning) float64 {
	v := t.MaxRate * (angle / math.Pi) * t.Coefficient
	v = math.Min(t.MaxRate, v)
	return math.Max(t.MinRate, v)
}

// Apply writes the command to the gyroscope and takes over its rotation.
func Apply(g host.Gyro, c Command) {
	g.SetYaw(c.Yaw)
	g.SetPitch(c.Pitch)
	g.SetRoll(c.Roll)
	g.SetGyroOverride(true)
}
