package host

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// UpdateType describes why the host invoked a program. Values match the host's flags; bit 4
// belonged to the retired antenna source and is unused.
type UpdateType uint32

const (
	UpdateNone      UpdateType = 0
	UpdateTerminal  UpdateType = 1
	UpdateTrigger   UpdateType = 2
	UpdateMod       UpdateType = 8
	UpdateScript    UpdateType = 16
	UpdateUpdate1   UpdateType = 32
	UpdateUpdate10  UpdateType = 64
	UpdateUpdate100 UpdateType = 128
	UpdateOnce      UpdateType = 256
	UpdateIGC       UpdateType = 512
)

var updateTypeNames = []struct {
	flag UpdateType
	name string
}{
	{UpdateTerminal, "Terminal"},
	{UpdateTrigger, "Trigger"},
	{UpdateMod, "Mod"},
	{UpdateScript, "Script"},
	{UpdateUpdate1, "Update1"},
	{UpdateUpdate10, "Update10"},
	{UpdateUpdate100, "Update100"},
	{UpdateOnce, "Once"},
	{UpdateIGC, "IGC"},
}

func (u UpdateType) String() string {
	if u == UpdateNone {
		return "None"
	}
	var parts []string
	for _, n := range updateTypeNames {
		if u&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseUpdateType parses a "|" separated list of update type names. Unknown names are ignored.
func ParseUpdateType(s string) UpdateType {
	var u UpdateType
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		for _, n := range updateTypeNames {
			if strings.EqualFold(part, n.name) {
				u |= n.flag
			}
		}
	}
	return u
}

// DetectedEntityType classifies a raycast hit.
type DetectedEntityType uint8

const (
	EntityNone DetectedEntityType = iota
	EntityUnknown
	EntitySmallGrid
	EntityLargeGrid
	EntityCharacterHuman
	EntityCharacterOther
	EntityFloatingObject
	EntityAsteroid
	EntityPlanet
	EntityMeteor
	EntityMissile
)

var entityTypeNames = [...]string{
	"None", "Unknown", "SmallGrid", "LargeGrid", "CharacterHuman", "CharacterOther",
	"FloatingObject", "Asteroid", "Planet", "Meteor", "Missile",
}

func (t DetectedEntityType) String() string {
	if int(t) < len(entityTypeNames) {
		return entityTypeNames[t]
	}
	return "Unknown"
}

// DetectedEntity is the result of a camera raycast. HitPosition is nil when nothing was hit.
type DetectedEntity struct {
	EntityID     int64
	Name         string
	Type         DetectedEntityType
	Relationship string
	HitPosition  *mgl64.Vec3
}

// IsEmpty reports whether the raycast found nothing usable.
func (e DetectedEntity) IsEmpty() bool {
	return e.Type == EntityNone || e.HitPosition == nil
}
