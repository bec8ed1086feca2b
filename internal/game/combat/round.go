package combat

import (
	"fmt"
	"math"
	"sort"

	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/dice"
	"github.com/averyhall/warsim/internal/game/maneuver"
)

// SimulateRound computes one round of combat over bf and returns its record.
//
// The resolver is pure: bf is deep-copied on entry and never mutated, and
// all casualty math runs against the pre-round snapshot of every army, so
// the outcome does not depend on army list order. Given the same inputs and
// the same src sequence, the output is identical.
//
// mods maps army ID to the maneuver modifier in force THIS round (folded in
// by the orchestrator from the previous round's maneuvers; may be nil).
// baseline maps army ID to pre-battle total size for the break-threshold
// check; a missing entry falls back to the army's pre-round size.
//
// Precondition: tuning.AttritionConstant > 0; src must be non-nil when
// tuning.Variance > 0.
// Postcondition: Every army appears in the returned Round; no unit size is
// negative; armies reduced to zero size are StatusDestroyed.
func SimulateRound(
	bf battlefield.Battlefield,
	roundNumber int,
	mods map[string]maneuver.Modifier,
	baseline map[string]int,
	tuning Tuning,
	src dice.Source,
) Round {
	snapshot := bf.Clone()
	armies := snapshot.Armies

	// Pre-round sizes and effective powers, fixed before any damage is
	// applied. Variance draws happen in army list order so a seeded source
	// reproduces the round exactly.
	preSizes := make([]int, len(armies))
	powers := make([]float64, len(armies))
	engaged := make([]bool, len(armies))
	for i := range armies {
		preSizes[i] = armies[i].TotalSize()
	}
	pairs := engagedPairs(armies, snapshot.Terrain.EngagementRange)
	for _, p := range pairs {
		engaged[p.a] = true
		engaged[p.b] = true
	}
	for i := range armies {
		if !engaged[i] {
			continue
		}
		powers[i] = effectivePower(armies[i], snapshot.Terrain, modFor(mods, armies[i].ID)) *
			dice.Variance(src, tuning.Variance)
	}

	// Simultaneous exchange: accumulate raw casualties and inflicted totals
	// per army from the fixed powers.
	received := make([]float64, len(armies))
	inflicted := make([]float64, len(armies))
	for _, p := range pairs {
		defA := modFor(mods, armies[p.a].ID).Defense
		defB := modFor(mods, armies[p.b].ID).Defense
		toA := powers[p.b] / (tuning.AttritionConstant * defA)
		toB := powers[p.a] / (tuning.AttritionConstant * defB)
		received[p.a] += toA
		received[p.b] += toB
		inflicted[p.a] += toB
		inflicted[p.b] += toA
	}

	var events []Event

	// Apply casualties and engagement events in pair order.
	losses := make([]int, len(armies))
	for i := range armies {
		if received[i] > 0 {
			// Ceil guarantees every engaged round makes progress.
			losses[i] = int(math.Ceil(received[i]))
		}
	}
	for _, p := range pairs {
		events = append(events, Event{
			Kind:   EventEngagement,
			ArmyID: armies[p.a].ID,
			Narrative: fmt.Sprintf("%s clashes with %s (%d vs %d casualties)",
				displayName(armies[p.a]), displayName(armies[p.b]),
				capLoss(losses[p.a], preSizes[p.a]), capLoss(losses[p.b], preSizes[p.b])),
		})
	}
	for i := range armies {
		if losses[i] > 0 {
			distributeLosses(&armies[i], capLoss(losses[i], preSizes[i]))
		}
	}

	// Status transitions, from the post-casualty state.
	for i := range armies {
		a := &armies[i]
		wasActive := a.Status == battlefield.StatusActive

		a.RefreshStatus()
		if wasActive && a.Status == battlefield.StatusDestroyed {
			events = append(events, Event{
				Kind:      EventDestroyed,
				ArmyID:    a.ID,
				Narrative: fmt.Sprintf("%s is destroyed", displayName(*a)),
			})
			continue
		}
		if !wasActive {
			continue
		}

		if modFor(mods, a.ID).ForceRetreat {
			a.Status = battlefield.StatusRetreating
			events = append(events, Event{
				Kind:      EventWithdraw,
				ArmyID:    a.ID,
				Narrative: fmt.Sprintf("%s withdraws from the field in good order", displayName(*a)),
			})
			continue
		}

		base := baselineFor(baseline, a.ID, preSizes[i])
		broke := base > 0 &&
			float64(a.TotalSize()) < tuning.BreakThreshold*float64(base) &&
			received[i] > inflicted[i]
		if broke {
			a.Status = battlefield.StatusRetreating
			events = append(events, Event{
				Kind:      EventRouted,
				ArmyID:    a.ID,
				Narrative: fmt.Sprintf("%s breaks and flees the field", displayName(*a)),
			})
		}
	}

	return Round{
		Number: roundNumber,
		Armies: snapshotStates(armies),
		Events: events,
	}
}

// pair indexes two opposing armies that fight this round.
type pair struct {
	a int
	b int
}

// engagedPairs returns every pair of active armies of different factions
// within range of each other, in (i, j) list order.
func engagedPairs(armies []battlefield.Army, rng float64) []pair {
	var out []pair
	for i := 0; i < len(armies); i++ {
		if armies[i].Status != battlefield.StatusActive {
			continue
		}
		for j := i + 1; j < len(armies); j++ {
			if armies[j].Status != battlefield.StatusActive {
				continue
			}
			if armies[i].Faction == armies[j].Faction {
				continue
			}
			if armies[i].Position.Distance(armies[j].Position) > rng {
				continue
			}
			out = append(out, pair{a: i, b: j})
		}
	}
	return out
}

// effectivePower is the army's casualty-dealing capacity this round:
// sum of size x strength across units, scaled by terrain, the maneuver
// attack and morale multipliers, and the commander bonus.
func effectivePower(a battlefield.Army, terrain battlefield.Terrain, mod maneuver.Modifier) float64 {
	base := 0.0
	for _, u := range a.Units {
		base += float64(u.Size) * u.Strength
	}
	power := base * terrain.CombatModifier * mod.Attack * mod.Morale
	if a.Commander != nil {
		power *= 1 + a.Commander.Bonus
	}
	return power
}

// distributeLosses spreads total casualties across the army's units in
// proportion to unit size (largest-remainder rounding, ties broken by unit
// order), so larger formations absorb proportionally more losses.
//
// Precondition: total <= army.TotalSize().
// Postcondition: army.TotalSize() decreases by exactly total; no unit size
// goes negative.
func distributeLosses(a *battlefield.Army, total int) {
	size := a.TotalSize()
	if total <= 0 || size == 0 {
		return
	}

	type share struct {
		idx  int
		frac float64
	}
	assigned := 0
	shares := make([]share, 0, len(a.Units))
	for i := range a.Units {
		exact := float64(total) * float64(a.Units[i].Size) / float64(size)
		whole := int(exact)
		a.Units[i].TakeLosses(whole)
		assigned += whole
		shares = append(shares, share{idx: i, frac: exact - float64(whole)})
	}

	// Hand out the rounding remainder by largest fractional part.
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	remainder := total - assigned
	for remainder > 0 {
		progressed := false
		for _, s := range shares {
			if remainder == 0 {
				break
			}
			if a.Units[s.idx].Size > 0 {
				a.Units[s.idx].TakeLosses(1)
				remainder--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
}

func snapshotStates(armies []battlefield.Army) []ArmyState {
	out := make([]ArmyState, len(armies))
	for i, a := range armies {
		out[i] = ArmyState{
			ArmyID:   a.ID,
			Name:     a.Name,
			Faction:  a.Faction,
			Status:   a.Status,
			Position: a.Position,
			Size:     a.TotalSize(),
			Units:    append([]battlefield.Unit(nil), a.Units...),
		}
	}
	return out
}

func modFor(mods map[string]maneuver.Modifier, armyID string) maneuver.Modifier {
	if mods == nil {
		return maneuver.Identity()
	}
	if m, ok := mods[armyID]; ok {
		return m
	}
	return maneuver.Identity()
}

func baselineFor(baseline map[string]int, armyID string, fallback int) int {
	if baseline == nil {
		return fallback
	}
	if b, ok := baseline[armyID]; ok {
		return b
	}
	return fallback
}

func capLoss(loss, size int) int {
	if loss > size {
		return size
	}
	return loss
}

func displayName(a battlefield.Army) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
