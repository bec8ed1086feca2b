package battlefield_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/averyhall/warsim/internal/game/battlefield"
)

func plains() battlefield.Terrain {
	return battlefield.Terrain{
		Kind:            "plains",
		MovementCost:    1.0,
		CombatModifier:  1.0,
		EngagementRange: 20.0,
	}
}

func testField() battlefield.Battlefield {
	return battlefield.Battlefield{
		Terrain: plains(),
		Bounds:  battlefield.Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100},
		Armies: []battlefield.Army{
			{
				ID:      "a1",
				Name:    "First Legion",
				Faction: "crimson",
				Units: []battlefield.Unit{
					{Type: battlefield.UnitInfantry, Size: 100, Strength: 1.0},
				},
				Position: battlefield.Position{X: 10, Y: 50},
				Status:   battlefield.StatusActive,
			},
			{
				ID:      "b1",
				Name:    "Azure Host",
				Faction: "azure",
				Units: []battlefield.Unit{
					{Type: battlefield.UnitInfantry, Size: 100, Strength: 1.0},
				},
				Position: battlefield.Position{X: 20, Y: 50},
				Status:   battlefield.StatusActive,
			},
		},
	}
}

func TestUnitTakeLosses_Clamps(t *testing.T) {
	u := battlefield.Unit{Type: battlefield.UnitInfantry, Size: 10, Strength: 1}
	applied := u.TakeLosses(25)
	assert.Equal(t, 10, applied)
	assert.Equal(t, 0, u.Size)
}

func TestUnitTakeLosses_Partial(t *testing.T) {
	u := battlefield.Unit{Type: battlefield.UnitCavalry, Size: 40, Strength: 2}
	applied := u.TakeLosses(15)
	assert.Equal(t, 15, applied)
	assert.Equal(t, 25, u.Size)
}

func TestArmyTotalSize(t *testing.T) {
	a := battlefield.Army{Units: []battlefield.Unit{
		{Size: 100}, {Size: 50}, {Size: 0},
	}}
	assert.Equal(t, 150, a.TotalSize())
}

func TestArmyRefreshStatus_Destroyed(t *testing.T) {
	a := battlefield.Army{
		Status: battlefield.StatusActive,
		Units:  []battlefield.Unit{{Size: 0}},
	}
	a.RefreshStatus()
	assert.Equal(t, battlefield.StatusDestroyed, a.Status)
}

func TestArmyRefreshStatus_KeepsActive(t *testing.T) {
	a := battlefield.Army{
		Status: battlefield.StatusActive,
		Units:  []battlefield.Unit{{Size: 1}},
	}
	a.RefreshStatus()
	assert.Equal(t, battlefield.StatusActive, a.Status)
}

func TestArmyClone_Independent(t *testing.T) {
	orig := testField().Armies[0]
	orig.Commander = &battlefield.Commander{Name: "Voss", CommandPoints: 3, Maneuvers: []string{"flank"}}

	cp := orig.Clone()
	cp.Units[0].Size = 1
	cp.Commander.CommandPoints = 0
	cp.Commander.Maneuvers[0] = "changed"

	assert.Equal(t, 100, orig.Units[0].Size)
	assert.Equal(t, 3, orig.Commander.CommandPoints)
	assert.Equal(t, "flank", orig.Commander.Maneuvers[0])
}

func TestBattlefieldClone_Independent(t *testing.T) {
	bf := testField()
	cp := bf.Clone()
	cp.Armies[0].Units[0].Size = 0
	assert.Equal(t, 100, bf.Armies[0].Units[0].Size)
}

func TestBoundsClamp(t *testing.T) {
	b := battlefield.Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	p := b.Clamp(battlefield.Position{X: -5, Y: 25})
	assert.Equal(t, battlefield.Position{X: 0, Y: 10}, p)
	assert.True(t, b.Contains(p))
}

func TestFactions_Order(t *testing.T) {
	bf := testField()
	assert.Equal(t, []string{"crimson", "azure"}, bf.Factions())
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, testField().Validate())
}

func TestValidate_Empty(t *testing.T) {
	bf := battlefield.Battlefield{Terrain: plains(), Bounds: battlefield.Bounds{MaxX: 1, MaxY: 1}}
	err := bf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 armies")
}

func TestValidate_SingleFaction(t *testing.T) {
	bf := testField()
	bf.Armies[1].Faction = "crimson"
	err := bf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distinct factions")
}

func TestValidate_DuplicateID(t *testing.T) {
	bf := testField()
	bf.Armies[1].ID = "a1"
	err := bf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate army ID")
}

func TestValidate_ZeroSizeArmy(t *testing.T) {
	bf := testField()
	bf.Armies[0].Units[0].Size = 0
	err := bf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero total size")
}

func TestValidate_OutOfBoundsPosition(t *testing.T) {
	bf := testField()
	bf.Armies[0].Position = battlefield.Position{X: 500, Y: 500}
	err := bf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of bounds")
}

// Property: TakeLosses never drives Size negative and never absorbs more
// than requested.
func TestPropertyTakeLossesClamp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(0, 10_000).Draw(t, "size")
		losses := rapid.IntRange(0, 20_000).Draw(t, "losses")
		u := battlefield.Unit{Size: size, Strength: 1}
		applied := u.TakeLosses(losses)
		if u.Size < 0 {
			t.Fatalf("size went negative: %d", u.Size)
		}
		if applied > losses {
			t.Fatalf("applied %d > requested %d", applied, losses)
		}
		if u.Size+applied != size {
			t.Fatalf("losses not conserved: size %d + applied %d != initial %d", u.Size, applied, size)
		}
	})
}
