// Package host declares the capabilities a program block can reach on its grid.
//
// The host simulation owns every block; programs only hold these handles and drive them.
// Capabilities are detected by type assertion on Block, so a host adapter exposes a block
// as whichever of these interfaces it actually supports.
//
// Orientation matrices are world-space rotation matrices whose columns are the block's
// right, up and backward axes. Forward is the negated third column.
package host

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Block is any terminal block on the grid.
type Block interface {
	EntityID() int64
	CustomName() string
}

// BlockGroup is a named group of blocks configured by the player.
type BlockGroup interface {
	Name() string
	Blocks() []Block
}

// GridTerminal is the block discovery facility of the program's grid.
type GridTerminal interface {
	BlockGroups() []BlockGroup
	Blocks() []Block
	// SearchBlocksOfName returns blocks whose name contains substr.
	SearchBlocksOfName(substr string) []Block
	// BlockWithName returns the block with exactly this name, or nil.
	BlockWithName(name string) Block
}

// ProgrammableBlock is the block running a program. Its custom data is a free-form
// text field other programs may rewrite at any time.
type ProgrammableBlock interface {
	Block
	CustomData() string
	SetCustomData(data string)
}

// TextSurface is a display that shows text.
type TextSurface interface {
	WriteText(text string, appendText bool) bool
	SetFontColor(c color.RGBA)
}

// Gyro overrides the grid's rotation with rate setpoints in radians per second.
type Gyro interface {
	Block
	SetYaw(rate float32)
	SetPitch(rate float32)
	SetRoll(rate float32)
	SetGyroOverride(enabled bool)
	Orientation() mgl64.Mat3
}

// RemoteControl is the navigation reference of a grid.
type RemoteControl interface {
	Block
	CenterOfMass() mgl64.Vec3
	Orientation() mgl64.Mat3
}

// MergeBlock holds a missile on its launcher until it disconnects.
type MergeBlock interface {
	Block
	IsConnected() bool
}

// Thruster accepts an override as a fraction of its maximum thrust.
type Thruster interface {
	Block
	SetThrustOverridePercentage(fraction float32)
	ThrustOverridePercentage() float32
}

// Warhead can be armed so that it detonates on impact.
type Warhead interface {
	Block
	SetArmed(armed bool)
	IsArmed() bool
}

// Rotor turns a subgrid at a target velocity.
type Rotor interface {
	Block
	SetTargetVelocityRPM(rpm float32)
	SetRotorLock(locked bool)
}

// ShipController is a seat or cockpit.
type ShipController interface {
	Block
	IsUnderControl() bool
	CanControlShip() bool
	// RotationIndicator is the mouse movement of the seated player this frame.
	RotationIndicator() mgl64.Vec2
	CenterOfMass() mgl64.Vec3
}

// Camera can raycast forward to find entities.
type Camera interface {
	Block
	IsActive() bool
	SetEnableRaycast(enabled bool)
	Raycast(distance float64, pitch, yaw float32) DetectedEntity
}
