// Package combat implements the mass combat round resolver: one discrete
// round of simultaneous engagement, casualties, and status changes.
package combat

import (
	"github.com/averyhall/warsim/internal/game/battlefield"
)

// Tuning holds the per-battle combat constants. All values come from
// configuration; nothing here is hardcoded into the resolver.
type Tuning struct {
	// AttritionConstant divides effective power into casualties. Higher
	// values mean fewer losses per round.
	AttritionConstant float64
	// BreakThreshold is the fraction of pre-battle strength below which a
	// net-losing army routs.
	BreakThreshold float64
	// Variance is the +/- spread applied to each engaged army's power.
	Variance float64
}

// EventKind classifies a round event.
type EventKind string

const (
	// EventEngagement records two armies exchanging casualties.
	EventEngagement EventKind = "engagement"
	// EventDestroyed records an army reduced to zero size.
	EventDestroyed EventKind = "destroyed"
	// EventRouted records an army breaking below its threshold.
	EventRouted EventKind = "routed"
	// EventWithdraw records an ordered retreat (maneuver-forced).
	EventWithdraw EventKind = "withdraw"
	// EventManeuver records a maneuver executed by a commander.
	EventManeuver EventKind = "maneuver"
	// EventManeuverSkipped records a maneuver that could not be funded.
	EventManeuverSkipped EventKind = "maneuver_skipped"
	// EventStalemate records a round-cap termination.
	EventStalemate EventKind = "stalemate"
)

// Event is one human-readable entry in a round record.
type Event struct {
	Kind      EventKind
	ArmyID    string
	Narrative string
}

// ArmyState is an army's post-round snapshot inside a Round record.
type ArmyState struct {
	ArmyID   string
	Name     string
	Faction  string
	Status   battlefield.Status
	Position battlefield.Position
	Size     int
	Units    []battlefield.Unit
}

// Round is the immutable record of one combat round. It is appended to the
// battle log and never mutated afterwards.
type Round struct {
	Number int
	Armies []ArmyState
	Events []Event
}

// StateFor returns the state snapshot for armyID within the round.
//
// Postcondition: Returns (state, true) if present, or (ArmyState{}, false).
func (r Round) StateFor(armyID string) (ArmyState, bool) {
	for _, s := range r.Armies {
		if s.ArmyID == armyID {
			return s, true
		}
	}
	return ArmyState{}, false
}
