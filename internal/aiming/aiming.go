// Package aiming drives a camera turret from the seated player's mouse and broadcasts
// whatever the camera locks on to the missiles waiting on the grid.
package aiming

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/corax/nail/internal/status"
	"github.com/corax/nail/internal/vecmath"
	"github.com/corax/nail/pkg/host"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrOffline is reported while the turret's blocks have not all been found.
var ErrOffline = errors.New("aiming system is offline")

// Config holds block names and turret constants.
type Config struct {
	GroupTag           string
	HorizontalRotorTag string
	VerticalRotorTag   string
	MissileTag         string
	HorizontalSpeed    float64 // RPM per unit of vertical mouse movement
	VerticalSpeed      float64 // RPM per unit of horizontal mouse movement
	LockDistance       float64
	StatusSurface      string
	TargetSurface      string
}

// DefaultConfig returns the values the turret is built with.
func DefaultConfig() Config {
	return Config{
		GroupTag:           "AimingSys",
		HorizontalRotorTag: "horizontal",
		VerticalRotorTag:   "vertical",
		MissileTag:         "NAIL",
		HorizontalSpeed:    0.32,
		VerticalSpeed:      -0.32,
		LockDistance:       10000,
		StatusSurface:      "Corax_LCD_AimingSys",
		TargetSurface:      "Corax_LCD_TargetInfo",
	}
}

// Lock describes a raycast hit.
type Lock struct {
	Name         string
	Type         host.DetectedEntityType
	Relationship string
	Position     mgl64.Vec3
	Distance     float64 // from the ship controller's centre of mass
}

// Report summarises one aiming tick.
type Report struct {
	Tick      uint64
	Time      time.Time
	Active    bool  // camera is being looked through
	Lock      *Lock // nil when the raycast found nothing
	Broadcast int   // programmable blocks that received the target
	Err       error
}

// Controller owns the turret blocks.
type Controller struct {
	cfg    Config
	grid   host.GridTerminal
	logger *slog.Logger
	now    func() time.Time

	seat       host.ShipController
	horizontal host.Rotor
	vertical   host.Rotor
	camera     host.Camera
	gyros      []host.Gyro

	activeLastRun bool
	ticks         uint64

	statusPanel *status.Reporter
	targetPanel *status.Reporter
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an aiming controller on grid.
func NewController(grid host.GridTerminal, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		grid:   grid,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.statusPanel = status.New(grid, cfg.StatusSurface, status.WithClock(c.now), status.WithLogger(c.logger))
	c.targetPanel = status.New(grid, cfg.TargetSurface, status.WithClock(c.now), status.WithLogger(c.logger))
	return c
}

// HasBeenSetup reports whether the seat, both rotors and the camera were found.
func (c *Controller) HasBeenSetup() bool {
	return c.seat != nil && c.horizontal != nil && c.vertical != nil && c.camera != nil
}

// Gyros returns the gyroscopes held still while aiming.
func (c *Controller) Gyros() []host.Gyro { return c.gyros }

// Tick runs one aiming pass.
func (c *Controller) Tick(argument string, source host.UpdateType) Report {
	c.ticks++
	report := Report{Tick: c.ticks, Time: c.now()}
	c.logger.Debug("tick", "tick", c.ticks, "source", source.String(), "argument", argument)

	if !c.HasBeenSetup() {
		c.statusPanel.Warn("Aiming System is offline.")
		c.setup()
		report.Err = ErrOffline
		return report
	}

	if !c.camera.IsActive() {
		c.statusPanel.Info("Aiming System is online.")
		c.activeLastRun = false
		c.stopRotors()
		return report
	}
	report.Active = true

	if !c.activeLastRun {
		c.logger.Debug("camera activated")
		c.targetPanel.Clear()
		c.activeLastRun = true
		c.horizontal.SetRotorLock(false)
		c.vertical.SetRotorLock(false)
	}

	mouse := c.seat.RotationIndicator()
	c.horizontal.SetTargetVelocityRPM(float32(mouse.Y() * c.cfg.HorizontalSpeed))
	c.vertical.SetTargetVelocityRPM(float32(mouse.X() * c.cfg.VerticalSpeed))
	c.overrideGyros(true)

	lock := c.lockOn()
	if lock == nil {
		return report
	}
	report.Lock = lock
	report.Broadcast = c.broadcast(lock.Position)
	return report
}

func (c *Controller) lockOn() *Lock {
	c.camera.SetEnableRaycast(true)
	hit := c.camera.Raycast(c.cfg.LockDistance, 0, 0)
	if hit.IsEmpty() {
		return nil
	}

	lock := &Lock{
		Name:         hit.Name,
		Type:         hit.Type,
		Relationship: hit.Relationship,
		Position:     *hit.HitPosition,
	}
	lock.Distance = vecmath.Distance(lock.Position, c.seat.CenterOfMass())

	c.targetPanel.Info("LOCK ON" +
		"\nName: " + lock.Name +
		"\nType = " + lock.Type.String() +
		"\nRelationship = " + lock.Relationship +
		"\nDistance = " + status.Meters(lock.Distance))
	return lock
}

// broadcast writes the target into every missile program's custom data.
func (c *Controller) broadcast(target mgl64.Vec3) int {
	data := vecmath.FormatVector(target)
	n := 0
	for _, b := range c.grid.SearchBlocksOfName(c.cfg.MissileTag) {
		if pb, ok := b.(host.ProgrammableBlock); ok {
			pb.SetCustomData(data)
			n++
		}
	}
	return n
}

func (c *Controller) overrideGyros(enabled bool) {
	for _, g := range c.gyros {
		if enabled {
			g.SetPitch(0)
			g.SetYaw(0)
			g.SetRoll(0)
		}
		g.SetGyroOverride(enabled)
	}
}

func (c *Controller) stopRotors() {
	c.overrideGyros(false)
	c.horizontal.SetTargetVelocityRPM(0)
	c.horizontal.SetRotorLock(true)
	c.vertical.SetTargetVelocityRPM(0)
	c.vertical.SetRotorLock(true)
}

// setup scans every aiming group; later groups override earlier ones.
func (c *Controller) setup() {
	c.logger.Debug("Setting up...")
	if c.grid == nil {
		return
	}

	tag := strings.ToLower(c.cfg.GroupTag)
	for _, g := range c.grid.BlockGroups() {
		if strings.Contains(strings.ToLower(g.Name()), tag) {
			c.setupBlocks(g.Blocks())
		}
	}

	c.gyros = c.gyros[:0]
	for _, b := range c.grid.Blocks() {
		if g, ok := b.(host.Gyro); ok {
			c.gyros = append(c.gyros, g)
		}
	}
}

func (c *Controller) setupBlocks(blocks []host.Block) {
	horizontalTag := strings.ToLower(c.cfg.HorizontalRotorTag)
	verticalTag := strings.ToLower(c.cfg.VerticalRotorTag)

	for _, b := range blocks {
		switch v := b.(type) {
		case host.ShipController:
			if v.IsUnderControl() && v.CanControlShip() {
				c.seat = v
				c.logger.Debug("Setup ShipController", "name", v.CustomName())
			} else {
				c.logger.Debug("Cannot setup ShipController because it is not under control", "name", v.CustomName())
			}
		case host.Rotor:
			name := strings.ToLower(v.CustomName())
			if strings.Contains(name, horizontalTag) {
				c.horizontal = v
			} else if strings.Contains(name, verticalTag) {
				c.vertical = v
			}
		case host.Camera:
			c.camera = v
		}
	}
}
