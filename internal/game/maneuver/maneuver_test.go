package maneuver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/maneuver"
)

func flanking() maneuver.Maneuver {
	return maneuver.Maneuver{
		ID:          "flanking",
		Name:        "Flanking Charge",
		Description: "cavalry sweeps around the enemy line",
		Cost:        2,
		Effect:      maneuver.Modifier{Attack: 1.25, Defense: 1, Morale: 1},
	}
}

func testArmy() battlefield.Army {
	return battlefield.Army{
		ID:      "a1",
		Name:    "First Legion",
		Faction: "crimson",
		Units:   []battlefield.Unit{{Type: battlefield.UnitCavalry, Size: 50, Strength: 2}},
		Status:  battlefield.StatusActive,
	}
}

func TestModifierCombine(t *testing.T) {
	a := maneuver.Modifier{Attack: 1.2, Defense: 1, Morale: 1}
	b := maneuver.Modifier{Attack: 1.5, Defense: 0.8, Morale: 1, ForceRetreat: true}
	c := a.Combine(b)
	assert.InDelta(t, 1.8, c.Attack, 1e-9)
	assert.InDelta(t, 0.8, c.Defense, 1e-9)
	assert.True(t, c.ForceRetreat)
}

func TestIdentity(t *testing.T) {
	assert.True(t, maneuver.Identity().IsIdentity())
	assert.False(t, maneuver.Modifier{Attack: 1.1, Defense: 1, Morale: 1}.IsIdentity())
}

func TestCatalogRegisterAndGet(t *testing.T) {
	cat := maneuver.NewCatalog()
	require.NoError(t, cat.Register(flanking()))

	m, err := cat.Get("flanking")
	require.NoError(t, err)
	assert.Equal(t, "Flanking Charge", m.Name)

	_, err = cat.Get("ghost")
	assert.ErrorIs(t, err, maneuver.ErrUnknownManeuver)
}

func TestCatalogRejectsDuplicate(t *testing.T) {
	cat := maneuver.NewCatalog()
	require.NoError(t, cat.Register(flanking()))
	assert.Error(t, cat.Register(flanking()))
}

func TestCatalogRejectsInvalid(t *testing.T) {
	cat := maneuver.NewCatalog()
	bad := flanking()
	bad.Effect.Attack = 0
	assert.Error(t, cat.Register(bad))

	bad = flanking()
	bad.Cost = -1
	assert.Error(t, cat.Register(bad))
}

func TestExecute_Success(t *testing.T) {
	r := maneuver.NewResolver(nil, zap.NewNop())
	cmdr := &battlefield.Commander{Name: "Voss", CommandPoints: 3}

	res, err := r.Execute(flanking(), cmdr, testArmy())
	require.NoError(t, err)
	assert.Equal(t, "flanking", res.ManeuverID)
	assert.Equal(t, "a1", res.ArmyID)
	assert.Contains(t, res.Narrative, "Voss")
	assert.Contains(t, res.Narrative, "Flanking Charge")
	assert.InDelta(t, 1.25, res.Modifier.Attack, 1e-9)
	// Execute never deducts; the orchestrator owns the commander.
	assert.Equal(t, 3, cmdr.CommandPoints)
}

func TestExecute_ResourceExhausted(t *testing.T) {
	r := maneuver.NewResolver(nil, zap.NewNop())
	cmdr := &battlefield.Commander{Name: "Voss", CommandPoints: 1}

	_, err := r.Execute(flanking(), cmdr, testArmy())
	assert.ErrorIs(t, err, maneuver.ErrResourceExhausted)
}

func TestExecute_NoCommander(t *testing.T) {
	r := maneuver.NewResolver(nil, zap.NewNop())
	_, err := r.Execute(flanking(), nil, testArmy())
	assert.ErrorIs(t, err, maneuver.ErrResourceExhausted)
}

type fakeScripts struct {
	mod maneuver.Modifier
	ok  bool
}

func (f fakeScripts) ManeuverEffect(hook string, army battlefield.Army, base maneuver.Modifier) (maneuver.Modifier, bool) {
	return f.mod, f.ok
}

func TestExecute_ScriptedEffect(t *testing.T) {
	scripted := maneuver.Modifier{Attack: 2, Defense: 1, Morale: 1}
	r := maneuver.NewResolver(fakeScripts{mod: scripted, ok: true}, zap.NewNop())
	cmdr := &battlefield.Commander{Name: "Voss", CommandPoints: 5}

	m := flanking()
	m.Script = "flanking_effect"
	res, err := r.Execute(m, cmdr, testArmy())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Modifier.Attack, 1e-9)
}

func TestExecute_ScriptFailureFallsBack(t *testing.T) {
	r := maneuver.NewResolver(fakeScripts{ok: false}, zap.NewNop())
	cmdr := &battlefield.Commander{Name: "Voss", CommandPoints: 5}

	m := flanking()
	m.Script = "flanking_effect"
	res, err := r.Execute(m, cmdr, testArmy())
	require.NoError(t, err)
	assert.InDelta(t, 1.25, res.Modifier.Attack, 1e-9, "static effect stands when the script fails")
}
