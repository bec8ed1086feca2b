// Package victory decides when a battle is over and who won it.
package victory

import (
	"github.com/averyhall/warsim/internal/game/battlefield"
)

// Verdict is the outcome of a termination check.
type Verdict struct {
	// Ended is true when at most one faction still has a fighting force.
	Ended bool
	// Victor is the sole surviving faction, or "" for mutual destruction
	// or a stalemate.
	Victor string
	// Stalemate marks a round-cap termination. Set by the orchestrator,
	// never by Assess.
	Stalemate bool
}

// Assess inspects the armies and reports whether the battle has ended.
// A faction is still standing while it has at least one active or
// retreating army with nonzero total size.
//
// Postcondition: Ended implies at most one faction is standing; Victor is
// that faction or "" when none remain.
func Assess(armies []battlefield.Army) Verdict {
	standing := make(map[string]bool)
	var last string
	for _, a := range armies {
		if a.HasStrength() {
			standing[a.Faction] = true
			last = a.Faction
		}
	}

	switch len(standing) {
	case 0:
		return Verdict{Ended: true}
	case 1:
		return Verdict{Ended: true, Victor: last}
	default:
		return Verdict{}
	}
}
