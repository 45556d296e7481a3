// Package hosttest provides in-memory host blocks for exercising programs without a simulation.
package hosttest

import (
	"image/color"
	"strings"

	"github.com/corax/nail/pkg/host"
	"github.com/go-gl/mathgl/mgl64"
)

// Base implements host.Block. Embed it in fakes.
type Base struct {
	ID   int64
	Name string
}

func (b *Base) EntityID() int64    { return b.ID }
func (b *Base) CustomName() string { return b.Name }

// Programmable is a fake programmable block.
type Programmable struct {
	Base
	Data string
}

func (p *Programmable) CustomData() string        { return p.Data }
func (p *Programmable) SetCustomData(data string) { p.Data = data }

// LCD is a fake text panel.
type LCD struct {
	Base
	Text   string
	Color  color.RGBA
	Writes int
}

func (l *LCD) WriteText(text string, appendText bool) bool {
	if appendText {
		l.Text += text
	} else {
		l.Text = text
	}
	l.Writes++
	return true
}

func (l *LCD) SetFontColor(c color.RGBA) { l.Color = c }

// Gyro is a fake gyroscope.
type Gyro struct {
	Base
	Yaw, Pitch, Roll float32
	Override         bool
	Frame            mgl64.Mat3
}

func (g *Gyro) SetYaw(rate float32)          { g.Yaw = rate }
func (g *Gyro) SetPitch(rate float32)        { g.Pitch = rate }
func (g *Gyro) SetRoll(rate float32)         { g.Roll = rate }
func (g *Gyro) SetGyroOverride(enabled bool) { g.Override = enabled }
func (g *Gyro) Orientation() mgl64.Mat3      { return g.Frame }

// Remote is a fake remote control.
type Remote struct {
	Base
	Position mgl64.Vec3
	Frame    mgl64.Mat3
}

func (r *Remote) CenterOfMass() mgl64.Vec3 { return r.Position }
func (r *Remote) Orientation() mgl64.Mat3  { return r.Frame }

// Merge is a fake merge block.
type Merge struct {
	Base
	Connected bool
}

func (m *Merge) IsConnected() bool { return m.Connected }

// Thruster is a fake thruster.
type Thruster struct {
	Base
	Override float32
	Sets     int
}

func (t *Thruster) SetThrustOverridePercentage(fraction float32) {
	t.Override = fraction
	t.Sets++
}

func (t *Thruster) ThrustOverridePercentage() float32 { return t.Override }

// Warhead is a fake warhead.
type Warhead struct {
	Base
	Armed bool
}

func (w *Warhead) SetArmed(armed bool) { w.Armed = armed }
func (w *Warhead) IsArmed() bool       { return w.Armed }

// Rotor is a fake rotor.
type Rotor struct {
	Base
	RPM    float32
	Locked bool
}

func (r *Rotor) SetTargetVelocityRPM(rpm float32) { r.RPM = rpm }
func (r *Rotor) SetRotorLock(locked bool)         { r.Locked = locked }

// Seat is a fake ship controller.
type Seat struct {
	Base
	UnderControl bool
	CanControl   bool
	Mouse        mgl64.Vec2
	Position     mgl64.Vec3
}

func (s *Seat) IsUnderControl() bool          { return s.UnderControl }
func (s *Seat) CanControlShip() bool          { return s.CanControl }
func (s *Seat) RotationIndicator() mgl64.Vec2 { return s.Mouse }
func (s *Seat) CenterOfMass() mgl64.Vec3      { return s.Position }

// Camera is a fake camera whose raycast returns Hit.
type Camera struct {
	Base
	Active         bool
	RaycastEnabled bool
	Hit            host.DetectedEntity
	Casts          int
	LastMax        float64
}

func (c *Camera) IsActive() bool                { return c.Active }
func (c *Camera) SetEnableRaycast(enabled bool) { c.RaycastEnabled = enabled }

func (c *Camera) Raycast(distance float64, pitch, yaw float32) host.DetectedEntity {
	c.Casts++
	c.LastMax = distance
	return c.Hit
}

// Group is a fake block group.
type Group struct {
	GroupName string
	Members   []host.Block
}

func (g *Group) Name() string         { return g.GroupName }
func (g *Group) Blocks() []host.Block { return g.Members }

// Grid is a fake grid terminal system. Name searches are case-insensitive. The counters
// record how often each discovery call was made.
type Grid struct {
	Groups   []*Group
	All      []host.Block
	Lookups  int
	Searches int
	Scans    int
}

// NewGrid returns a grid containing blocks.
func NewGrid(blocks ...host.Block) *Grid {
	return &Grid{All: blocks}
}

// AddGroup registers a group and adds its members to the grid if missing.
func (g *Grid) AddGroup(name string, members ...host.Block) *Group {
	grp := &Group{GroupName: name, Members: members}
	g.Groups = append(g.Groups, grp)
	for _, m := range members {
		if !g.contains(m) {
			g.All = append(g.All, m)
		}
	}
	return grp
}

func (g *Grid) contains(b host.Block) bool {
	for _, existing := range g.All {
		if existing == b {
			return true
		}
	}
	return false
}

func (g *Grid) BlockGroups() []host.BlockGroup {
	out := make([]host.BlockGroup, len(g.Groups))
	for i, grp := range g.Groups {
		out[i] = grp
	}
	return out
}

func (g *Grid) Blocks() []host.Block {
	g.Scans++
	return g.All
}

func (g *Grid) SearchBlocksOfName(substr string) []host.Block {
	g.Searches++
	var out []host.Block
	needle := strings.ToLower(substr)
	for _, b := range g.All {
		if strings.Contains(strings.ToLower(b.CustomName()), needle) {
			out = append(out, b)
		}
	}
	return out
}

func (g *Grid) BlockWithName(name string) host.Block {
	g.Lookups++
	for _, b := range g.All {
		if b.CustomName() == name {
			return b
		}
	}
	return nil
}

var (
	_ host.ProgrammableBlock = (*Programmable)(nil)
	_ host.TextSurface       = (*LCD)(nil)
	_ host.Gyro              = (*Gyro)(nil)
	_ host.RemoteControl     = (*Remote)(nil)
	_ host.MergeBlock        = (*Merge)(nil)
	_ host.Thruster          = (*Thruster)(nil)
	_ host.Warhead           = (*Warhead)(nil)
	_ host.Rotor             = (*Rotor)(nil)
	_ host.ShipController    = (*Seat)(nil)
	_ host.Camera            = (*Camera)(nil)
	_ host.GridTerminal      = (*Grid)(nil)
)
