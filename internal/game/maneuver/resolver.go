package maneuver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/averyhall/warsim/internal/game/battlefield"
)

// Result is the outcome of a successfully executed maneuver. The narrative
// is logged into the current round immediately; the modifier takes effect
// the following round.
type Result struct {
	ManeuverID string
	ArmyID     string
	Commander  string
	Narrative  string
	Modifier   Modifier
}

// ScriptRunner adjusts a maneuver's effect from a script hook. Implemented
// by the scripting package; nil disables scripted effects.
type ScriptRunner interface {
	// ManeuverEffect evaluates hook against the army snapshot and the
	// static base modifier. ok is false when the hook is missing or fails,
	// in which case the base modifier stands.
	ManeuverEffect(hook string, army battlefield.Army, base Modifier) (mod Modifier, ok bool)
}

// Resolver executes tactical maneuvers. It is pure with respect to game
// state: the commander's points are checked here but deducted by the
// orchestrator, which owns all battlefield mutation.
type Resolver struct {
	scripts ScriptRunner
	logger  *zap.Logger
}

// NewResolver creates a Resolver. scripts may be nil (static effects only).
//
// Precondition: logger must be non-nil.
func NewResolver(scripts ScriptRunner, logger *zap.Logger) *Resolver {
	return &Resolver{scripts: scripts, logger: logger}
}

// Execute resolves m invoked by commander on behalf of army.
//
// Precondition: the orchestrator should have verified the commander's
// command points; Execute re-checks and returns ErrResourceExhausted with a
// zero Result if they are insufficient or the commander is nil.
// Postcondition: On success, returns the narrative and effect modifier.
// Neither commander nor army is mutated.
func (r *Resolver) Execute(m Maneuver, commander *battlefield.Commander, army battlefield.Army) (Result, error) {
	if commander == nil {
		return Result{}, fmt.Errorf("%w: army %q has no commander", ErrResourceExhausted, army.ID)
	}
	if commander.CommandPoints < m.Cost {
		return Result{}, fmt.Errorf("%w: %q needs %d points, %s has %d",
			ErrResourceExhausted, m.ID, m.Cost, commander.Name, commander.CommandPoints)
	}

	mod := m.Effect
	if m.Script != "" && r.scripts != nil {
		if scripted, ok := r.scripts.ManeuverEffect(m.Script, army, m.Effect); ok {
			mod = scripted
		} else {
			// Script failure degrades to the static effect.
			r.logger.Warn("maneuver script unavailable, using static effect",
				zap.String("maneuver", m.ID),
				zap.String("script", m.Script),
			)
		}
	}

	return Result{
		ManeuverID: m.ID,
		ArmyID:     army.ID,
		Commander:  commander.Name,
		Narrative:  fmt.Sprintf("%s orders %s: %s", commander.Name, m.Name, m.Description),
		Modifier:   mod,
	}, nil
}
