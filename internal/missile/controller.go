// Package missile runs the launch and guidance sequence of a single missile.
//
// A Controller is polled once per host tick. Each tick walks the sequence from the top:
// resolve the rig, read the target, wait for release, fly clear of the launcher, arm the
// warheads and steer. The first unmet step ends the tick and the reason is returned in the
// tick report.
package missile

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corax/nail/internal/guidance"
	"github.com/corax/nail/internal/status"
	"github.com/corax/nail/internal/vecmath"
	"github.com/corax/nail/pkg/core"
	"github.com/corax/nail/pkg/host"
	"github.com/go-gl/mathgl/mgl64"
)

// Config holds the missile's block names and flight constants.
type Config struct {
	GroupTag       string
	ThrustTag      string
	StatusSurface  string
	LaunchDistance float64
	Tuning         guidance.Tuning
}

// DefaultConfig returns the values missiles are built with.
func DefaultConfig() Config {
	return Config{
		GroupTag:       "NAIL",
		ThrustTag:      "Forward",
		StatusSurface:  "Corax_LCD_MissileTargetInfo",
		LaunchDistance: 30,
		Tuning:         guidance.DefaultTuning(),
	}
}

// Controller owns one missile's rig and mission state.
type Controller struct {
	cfg      Config
	grid     host.GridTerminal
	self     host.ProgrammableBlock
	rig      *Rig
	tracker  Tracker
	state    State
	reporter *status.Reporter
	logger   *slog.Logger
	now      func() time.Time
	ticks    uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for per-tick progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock overrides the wall clock used for reports and status timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller for the program block self on grid.
func NewController(grid host.GridTerminal, self host.ProgrammableBlock, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		grid:    grid,
		self:    self,
		tracker: Tracker{Source: self},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reporter = status.New(grid, cfg.StatusSurface, status.WithClock(c.now), status.WithLogger(c.logger))
	return c
}

// State returns a copy of the mission state.
func (c *Controller) State() State { return c.state }

// Phase is the phase reached by the last tick.
func (c *Controller) Phase() core.Phase { return c.state.phase }

// Rig returns the resolved rig, or nil before the first tick.
func (c *Controller) Rig() *Rig { return c.rig }

// Tick runs one pass of the sequence. argument and source are accepted for the host's
// calling convention and do not influence guidance.
func (c *Controller) Tick(argument string, source host.UpdateType) core.TickReport {
	c.ticks++
	report := core.TickReport{Tick: c.ticks, Time: c.now()}
	c.logger.Debug("tick", "tick", c.ticks, "source", source.String(), "argument", argument)

	if !c.rig.HasBeenSetup() {
		c.logger.Debug("Setup...")
		c.state.enter(core.PhaseNotSetup)
		report.Phase = c.state.phase
		report.Err = c.setup()
		if c.rig.HasBeenSetup() {
			c.reporter.Info("Missile setup finished.")
		} else {
			c.reporter.Warn("Missile is not set up.")
		}
		return report
	}

	position := c.rig.Navigation.CenterOfMass()
	report.Position = vecmath.ToPosition(position)

	c.logger.Debug("Setup finished. Reading target position...")
	target, err := c.tracker.Target()
	if err != nil {
		c.state.enter(core.PhaseAwaitingTarget)
		report.Phase = c.state.phase
		report.Err = err
		c.reportTargetError(err)
		return report
	}
	report.Target = vecmath.ToPosition(target)
	report.HasTarget = true
	report.Distance = vecmath.Distance(target, position)
	c.reporter.Info("Missile locked on target\nDistance = " + status.Meters(report.Distance))

	c.logger.Debug("Load target position. Waiting for being released...")
	if c.rig.Release.IsConnected() {
		c.state.enter(core.PhaseAwaitingRelease)
		report.Phase = c.state.phase
		report.Err = ErrNotReleased
		return report
	}

	if c.state.Release(position) {
		c.logger.Info("missile released", "position", vecmath.FormatVector(position))
	}
	release, _ := c.state.ReleasePosition()
	report.Traveled = vecmath.Distance(position, release)

	c.logger.Debug("Missile released. Launching...")
	if !c.state.CompleteLaunch(report.Traveled, c.cfg.LaunchDistance) {
		if n := c.rig.SetThrust(1); n == 0 {
			c.logger.Warn("no forward thrusters found", "tag", c.cfg.ThrustTag)
		}
		report.Phase = c.state.phase
		report.Thrust = 1
		report.Err = ErrLaunching
		return report
	}
	report.Phase = c.state.phase

	if !c.state.Armed() {
		c.logger.Debug("Missile launched. Arm warheads...")
		if n := c.rig.ArmWarheads(); n > 0 {
			c.state.markArmed()
			c.logger.Info("warheads armed", "count", n)
		}
	}

	c.logger.Debug("Missile launched. Aiming at target...")
	cmd := guidance.Steer(guidance.Input{
		Position:  position,
		NavFrame:  c.rig.Navigation.Orientation(),
		GyroFrame: c.rig.Gyro.Orientation(),
		Target:    target,
	}, c.cfg.Tuning)
	if cmd.Locked {
		c.rig.SetThrust(1)
		report.Thrust = 1
	}
	guidance.Apply(c.rig.Gyro, cmd)

	report.Steering = &core.SteeringSample{
		BearingError: cmd.Angle,
		Magnitude:    cmd.Magnitude,
		Yaw:          cmd.Yaw,
		Pitch:        cmd.Pitch,
		Roll:         cmd.Roll,
		Locked:       cmd.Locked,
	}
	return report
}

func (c *Controller) setup() error {
	rig, err := Resolver{
		Grid:      c.grid,
		Self:      c.self,
		GroupTag:  c.cfg.GroupTag,
		ThrustTag: c.cfg.ThrustTag,
	}.Resolve()
	c.rig = rig
	if err != nil {
		c.logger.Debug("missile setup incomplete", "error", err)
		return fmt.Errorf("%w: %w", ErrNotSetup, err)
	}
	c.logger.Info("missile rig resolved",
		"gyro", rig.Gyro.CustomName(),
		"remote", rig.Navigation.CustomName(),
		"merge", rig.Release.CustomName())
	return ErrNotSetup
}

func (c *Controller) reportTargetError(err error) {
	var perr *ParseError
	if errors.As(err, &perr) {
		c.reporter.Error("Cannot parse target info on missile: '" + perr.Raw + "'")
		return
	}
	c.reporter.Warn("No target info on Missile.")
}

// Position is the navigation reference's centre of mass, or the zero vector before setup.
func (c *Controller) Position() mgl64.Vec3 {
	if !c.rig.HasBeenSetup() {
		return mgl64.Vec3{}
	}
	return c.rig.Navigation.CenterOfMass()
}
