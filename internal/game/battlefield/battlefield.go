// Package battlefield defines the army, unit, and battlefield model for the
// mass combat engine.
package battlefield

import (
	"fmt"
	"math"
	"strings"
)

// Status describes an army's fighting condition.
type Status string

const (
	// StatusActive armies engage opposing armies each round.
	StatusActive Status = "active"
	// StatusRetreating armies have broken and no longer fight, but survive.
	StatusRetreating Status = "retreating"
	// StatusDestroyed armies have zero remaining size. They stay in the
	// army list to preserve casualty history.
	StatusDestroyed Status = "destroyed"
)

// UnitType categorises a sub-formation within an army.
type UnitType string

const (
	UnitInfantry UnitType = "infantry"
	UnitCavalry  UnitType = "cavalry"
	UnitArchers  UnitType = "archers"
	UnitSiege    UnitType = "siege"
)

// Unit is a sub-formation with its own headcount and base strength.
//
// Invariant: Size >= 0 at all times.
type Unit struct {
	Type     UnitType
	Size     int
	Strength float64
}

// TakeLosses reduces Size by n, flooring at zero, and returns the losses
// actually absorbed.
//
// Precondition: n >= 0.
// Postcondition: Size >= 0; returned value <= n.
func (u *Unit) TakeLosses(n int) int {
	if n > u.Size {
		n = u.Size
	}
	u.Size -= n
	return n
}

// Position is a location on the battlefield plane.
type Position struct {
	X float64
	Y float64
}

// Distance returns the euclidean distance to other.
func (p Position) Distance(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Bounds is the rectangular extent of the battlefield.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Valid reports whether the bounds describe a non-degenerate rectangle.
func (b Bounds) Valid() bool {
	return b.MaxX > b.MinX && b.MaxY > b.MinY
}

// Contains reports whether p lies inside the bounds (inclusive).
func (b Bounds) Contains(p Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Clamp returns the nearest in-bounds point to p.
//
// Postcondition: Contains(result) is true.
func (b Bounds) Clamp(p Position) Position {
	return Position{
		X: math.Min(math.Max(p.X, b.MinX), b.MaxX),
		Y: math.Min(math.Max(p.Y, b.MinY), b.MaxY),
	}
}

// Terrain describes the ground the battle is fought on. It scales both
// movement and combat.
type Terrain struct {
	// Kind is a descriptive name: "plains", "forest", "hills", "marsh".
	Kind string
	// MovementCost divides the distance an army covers per move order.
	// 1.0 is open ground; 2.0 halves movement.
	MovementCost float64
	// CombatModifier multiplies every army's effective power.
	CombatModifier float64
	// EngagementRange is the distance within which opposing armies fight.
	EngagementRange float64
}

// Commander is a named leader attached to an army. Command points fund
// tactical maneuvers; Bonus is a fractional addition to the army's
// effective power (0.1 = +10%).
type Commander struct {
	Name          string
	CommandPoints int
	Maneuvers     []string
	Bonus         float64
}

// Clone returns a deep copy of the commander.
func (c *Commander) Clone() *Commander {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Maneuvers = append([]string(nil), c.Maneuvers...)
	return &cp
}

// Army is one faction's fighting force on the battlefield.
//
// Invariant: TotalSize() == 0 implies Status == StatusDestroyed.
type Army struct {
	ID        string
	Name      string
	Faction   string
	Units     []Unit
	Position  Position
	Status    Status
	Commander *Commander
}

// TotalSize returns the summed headcount of all units.
//
// Postcondition: Returns >= 0.
func (a Army) TotalSize() int {
	total := 0
	for _, u := range a.Units {
		total += u.Size
	}
	return total
}

// HasStrength reports whether the army still counts toward its faction's
// presence on the field: nonzero size and not destroyed.
func (a Army) HasStrength() bool {
	return a.Status != StatusDestroyed && a.TotalSize() > 0
}

// RefreshStatus enforces the size/status invariant: an army reduced to zero
// total size becomes destroyed.
//
// Postcondition: TotalSize() == 0 implies Status == StatusDestroyed.
func (a *Army) RefreshStatus() {
	if a.TotalSize() == 0 {
		a.Status = StatusDestroyed
	}
}

// Clone returns a deep copy of the army, including units and commander.
func (a Army) Clone() Army {
	cp := a
	cp.Units = append([]Unit(nil), a.Units...)
	cp.Commander = a.Commander.Clone()
	return cp
}

// Battlefield is the simulation's world state: the armies, the ground, and
// the spatial bounds. It is owned by the battle orchestrator; resolvers
// receive Clone()d snapshots.
type Battlefield struct {
	Armies  []Army
	Terrain Terrain
	Bounds  Bounds
}

// Clone returns a deep copy of the battlefield.
func (bf Battlefield) Clone() Battlefield {
	cp := bf
	cp.Armies = make([]Army, len(bf.Armies))
	for i, a := range bf.Armies {
		cp.Armies[i] = a.Clone()
	}
	return cp
}

// ArmyByID returns a copy of the army with the given ID.
//
// Postcondition: Returns (army, true) if found, or (Army{}, false) otherwise.
func (bf Battlefield) ArmyByID(id string) (Army, bool) {
	for _, a := range bf.Armies {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return Army{}, false
}

// Factions returns the distinct faction IDs present, in first-seen order.
func (bf Battlefield) Factions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range bf.Armies {
		if !seen[a.Faction] {
			seen[a.Faction] = true
			out = append(out, a.Faction)
		}
	}
	return out
}

// Validate checks that the battlefield is a legal battle setup.
//
// Postcondition: Returns nil if valid, or an error describing all violations.
func (bf Battlefield) Validate() error {
	var errs []string

	if len(bf.Armies) < 2 {
		errs = append(errs, fmt.Sprintf("battle requires at least 2 armies, got %d", len(bf.Armies)))
	}
	if len(bf.Factions()) < 2 {
		errs = append(errs, "battle requires at least 2 distinct factions")
	}
	if !bf.Bounds.Valid() {
		errs = append(errs, "bounds must describe a non-degenerate rectangle")
	}
	if bf.Terrain.MovementCost <= 0 {
		errs = append(errs, fmt.Sprintf("terrain movement cost must be > 0, got %g", bf.Terrain.MovementCost))
	}
	if bf.Terrain.CombatModifier <= 0 {
		errs = append(errs, fmt.Sprintf("terrain combat modifier must be > 0, got %g", bf.Terrain.CombatModifier))
	}
	if bf.Terrain.EngagementRange < 0 {
		errs = append(errs, fmt.Sprintf("terrain engagement range must be >= 0, got %g", bf.Terrain.EngagementRange))
	}

	ids := make(map[string]bool)
	for i, a := range bf.Armies {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("army %d has empty ID", i))
		} else if ids[a.ID] {
			errs = append(errs, fmt.Sprintf("duplicate army ID %q", a.ID))
		}
		ids[a.ID] = true
		if a.Faction == "" {
			errs = append(errs, fmt.Sprintf("army %q has empty faction", a.ID))
		}
		if len(a.Units) == 0 {
			errs = append(errs, fmt.Sprintf("army %q has no units", a.ID))
		}
		if a.TotalSize() == 0 {
			errs = append(errs, fmt.Sprintf("army %q has zero total size", a.ID))
		}
		for j, u := range a.Units {
			if u.Size < 0 {
				errs = append(errs, fmt.Sprintf("army %q unit %d has negative size %d", a.ID, j, u.Size))
			}
			if u.Strength <= 0 {
				errs = append(errs, fmt.Sprintf("army %q unit %d has non-positive strength %g", a.ID, j, u.Strength))
			}
		}
		if bf.Bounds.Valid() && !bf.Bounds.Contains(a.Position) {
			errs = append(errs, fmt.Sprintf("army %q position (%g, %g) is out of bounds", a.ID, a.Position.X, a.Position.Y))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid battlefield: %s", strings.Join(errs, "; "))
	}
	return nil
}
