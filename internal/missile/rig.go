package missile

import (
	"errors"
	"strings"

	"github.com/corax/nail/pkg/host"
)

// Rig is the set of blocks a missile flies with. Release, Gyro and Navigation come from the
// missile's block group; thrusters and warheads are found on the grid the first time they
// are needed.
type Rig struct {
	Release    host.MergeBlock
	Gyro       host.Gyro
	Navigation host.RemoteControl

	grid      host.GridTerminal
	thrustTag string

	thrustersLoaded bool
	thrusters       []host.Thruster
	warheadsLoaded  bool
	warheads        []host.Warhead
}

// HasBeenSetup reports whether the blocks needed before any mission logic are present.
func (r *Rig) HasBeenSetup() bool {
	return r != nil && r.Release != nil && r.Gyro != nil && r.Navigation != nil
}

// Missing lists the parts HasBeenSetup is waiting for.
func (r *Rig) Missing() []ErrMissingPart {
	var missing []ErrMissingPart
	if r.Release == nil {
		missing = append(missing, PartRelease)
	}
	if r.Gyro == nil {
		missing = append(missing, PartGyro)
	}
	if r.Navigation == nil {
		missing = append(missing, PartNavigation)
	}
	return missing
}

// ForwardThrusters returns the thrusters whose name contains the forward tag. The grid is
// searched once; later calls return the same list even if it was empty.
func (r *Rig) ForwardThrusters() []host.Thruster {
	if r.thrustersLoaded {
		return r.thrusters
	}
	r.thrustersLoaded = true
	if r.grid == nil {
		return nil
	}
	for _, b := range r.grid.SearchBlocksOfName(r.thrustTag) {
		if t, ok := b.(host.Thruster); ok {
			r.thrusters = append(r.thrusters, t)
		}
	}
	return r.thrusters
}

// Warheads returns every warhead on the grid, scanned once.
func (r *Rig) Warheads() []host.Warhead {
	if r.warheadsLoaded {
		return r.warheads
	}
	r.warheadsLoaded = true
	if r.grid == nil {
		return nil
	}
	for _, b := range r.grid.Blocks() {
		if w, ok := b.(host.Warhead); ok {
			r.warheads = append(r.warheads, w)
		}
	}
	return r.warheads
}

// SetThrust overrides every forward thruster to fraction of its maximum.
func (r *Rig) SetThrust(fraction float32) int {
	thrusters := r.ForwardThrusters()
	for _, t := range thrusters {
		t.SetThrustOverridePercentage(fraction)
	}
	return len(thrusters)
}

// ArmWarheads arms every warhead and returns how many there were.
func (r *Rig) ArmWarheads() int {
	warheads := r.Warheads()
	for _, w := range warheads {
		w.SetArmed(true)
	}
	return len(warheads)
}

// Resolver finds the missile's blocks through the group that contains the program block.
type Resolver struct {
	Grid      host.GridTerminal
	Self      host.Block
	GroupTag  string
	ThrustTag string
}

// Resolve distributes the first matching group's blocks by capability. The returned rig is
// never nil; when it is incomplete the error wraps ErrIncompleteRig and names what is missing.
func (res Resolver) Resolve() (*Rig, error) {
	rig := &Rig{grid: res.Grid, thrustTag: res.ThrustTag}
	if res.Grid == nil || res.Self == nil {
		return rig, errors.Join(ErrIncompleteRig, PartGroup)
	}

	blocks := res.findGroup()
	if blocks == nil {
		return rig, errors.Join(ErrIncompleteRig, PartGroup)
	}

	for _, b := range blocks {
		switch v := b.(type) {
		case host.TextSurface:
			// panels on the missile are not used
		case host.Gyro:
			rig.Gyro = v
		case host.RemoteControl:
			rig.Navigation = v
		case host.MergeBlock:
			rig.Release = v
		}
	}

	if missing := rig.Missing(); len(missing) > 0 {
		errs := []error{ErrIncompleteRig}
		for _, m := range missing {
			errs = append(errs, m)
		}
		return rig, errors.Join(errs...)
	}
	return rig, nil
}

func (res Resolver) findGroup() []host.Block {
	tag := strings.ToLower(res.GroupTag)
	id := res.Self.EntityID()
	for _, g := range res.Grid.BlockGroups() {
		if !strings.Contains(strings.ToLower(g.Name()), tag) {
			continue
		}
		blocks := g.Blocks()
		for _, b := range blocks {
			if b.EntityID() == id {
				return blocks
			}
		}
	}
	return nil
}
