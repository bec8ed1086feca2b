// Package maneuver implements commander-invoked tactical maneuvers and
// their round-delayed mechanical effects.
package maneuver

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted is returned when a commander lacks the command
// points to fund a maneuver. The maneuver produces no effect.
var ErrResourceExhausted = errors.New("maneuver: insufficient command points")

// ErrUnknownManeuver is returned by Catalog lookups for unregistered IDs.
var ErrUnknownManeuver = errors.New("maneuver: unknown maneuver")

// Modifier is the mechanical effect of a maneuver, folded into the NEXT
// round's power computation by the orchestrator. Fields are multipliers;
// 1.0 means no change.
type Modifier struct {
	Attack  float64
	Defense float64
	Morale  float64
	// ForceRetreat orders the army into retreating status next round
	// (retreat cover, feigned withdrawal).
	ForceRetreat bool
}

// Identity returns the no-effect modifier.
func Identity() Modifier {
	return Modifier{Attack: 1, Defense: 1, Morale: 1}
}

// Combine merges two modifiers by multiplying their factors. ForceRetreat
// is sticky: either source forcing a retreat forces the combined one.
func (m Modifier) Combine(other Modifier) Modifier {
	return Modifier{
		Attack:       m.Attack * other.Attack,
		Defense:      m.Defense * other.Defense,
		Morale:       m.Morale * other.Morale,
		ForceRetreat: m.ForceRetreat || other.ForceRetreat,
	}
}

// IsIdentity reports whether the modifier has no mechanical effect.
func (m Modifier) IsIdentity() bool {
	return m == Identity()
}

// Maneuver is a stateless specification of a commander action: a cost and
// an effect. Maneuvers are consumed during combat, never created by it.
type Maneuver struct {
	ID          string
	Name        string
	Description string
	// Cost is deducted from the commander's command points on execution.
	Cost int
	// Effect is the static modifier applied when no script overrides it.
	Effect Modifier
	// Script names an optional Lua hook that can adjust the effect based
	// on the army's state. Empty means static effect only.
	Script string
}

// Validate checks the maneuver specification.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Cost >= 0, and
// all effect multipliers are positive.
func (m Maneuver) Validate() error {
	if m.ID == "" {
		return errors.New("maneuver: empty ID")
	}
	if m.Name == "" {
		return fmt.Errorf("maneuver %q: empty name", m.ID)
	}
	if m.Cost < 0 {
		return fmt.Errorf("maneuver %q: negative cost %d", m.ID, m.Cost)
	}
	if m.Effect.Attack <= 0 || m.Effect.Defense <= 0 || m.Effect.Morale <= 0 {
		return fmt.Errorf("maneuver %q: effect multipliers must be > 0", m.ID)
	}
	return nil
}

// Catalog is a registry of maneuver specifications keyed by ID.
type Catalog struct {
	byID map[string]Maneuver
	ids  []string
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]Maneuver)}
}

// Register adds m to the catalog.
//
// Postcondition: Returns an error on validation failure or duplicate ID;
// the catalog is unchanged on error.
func (c *Catalog) Register(m Maneuver) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, exists := c.byID[m.ID]; exists {
		return fmt.Errorf("maneuver %q: already registered", m.ID)
	}
	c.byID[m.ID] = m
	c.ids = append(c.ids, m.ID)
	return nil
}

// Get returns the maneuver with the given ID.
//
// Postcondition: Returns (maneuver, nil) if found, or ErrUnknownManeuver.
func (c *Catalog) Get(id string) (Maneuver, error) {
	m, ok := c.byID[id]
	if !ok {
		return Maneuver{}, fmt.Errorf("%w: %q", ErrUnknownManeuver, id)
	}
	return m, nil
}

// IDs returns the registered maneuver IDs in registration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}
