// pkg/core/report.go
package core

import "time"

// TickReport summarises what a guidance tick did. Err is nil only when the tick reached
// the steering stage; otherwise it says which precondition stopped it.
type TickReport struct {
	Tick      uint64
	Time      time.Time
	Phase     Phase // phase reached by this tick
	Position  Position3D
	Target    Position3D
	HasTarget bool
	Distance  float64
	Traveled  float64
	Steering  *SteeringSample
	Thrust    float32
	Err       error
}

// SteeringSample is a copy of the rate command applied to the gyroscope on one tick.
type SteeringSample struct {
	BearingError float64
	Magnitude    float64
	Yaw          float32
	Pitch        float32
	Roll         float32
	Locked       bool
}

// Completed reports whether the tick ran all the way to steering.
func (r TickReport) Completed() bool {
	return r.Err == nil
}
