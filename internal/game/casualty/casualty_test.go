package casualty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/casualty"
)

func army(units ...battlefield.Unit) battlefield.Army {
	return battlefield.Army{
		ID:      "a1",
		Name:    "First Legion",
		Faction: "crimson",
		Units:   units,
		Status:  battlefield.StatusActive,
	}
}

func TestCalculate_NoLosses(t *testing.T) {
	initial := army(battlefield.Unit{Type: battlefield.UnitInfantry, Size: 100, Strength: 1})
	report := casualty.Calculate(initial, initial)

	assert.Equal(t, 0, report.Losses)
	assert.Equal(t, 0.0, report.PercentLost)
	require.Len(t, report.Units, 1)
	assert.Equal(t, 0, report.Units[0].Losses)
}

func TestCalculate_PartialLosses(t *testing.T) {
	initial := army(
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 100, Strength: 1},
		battlefield.Unit{Type: battlefield.UnitCavalry, Size: 50, Strength: 2},
	)
	current := army(
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 60, Strength: 1},
		battlefield.Unit{Type: battlefield.UnitCavalry, Size: 50, Strength: 2},
	)

	report := casualty.Calculate(current, initial)

	assert.Equal(t, 40, report.Losses)
	assert.InDelta(t, 40.0/150.0, report.PercentLost, 1e-9)
	require.Len(t, report.Units, 2)
	assert.Equal(t, battlefield.UnitInfantry, report.Units[0].Type)
	assert.Equal(t, 40, report.Units[0].Losses)
	assert.Equal(t, 0, report.Units[1].Losses)
}

func TestCalculate_TotalLoss(t *testing.T) {
	initial := army(battlefield.Unit{Type: battlefield.UnitInfantry, Size: 100, Strength: 1})
	current := army(battlefield.Unit{Type: battlefield.UnitInfantry, Size: 0, Strength: 1})

	report := casualty.Calculate(current, initial)

	assert.Equal(t, 100, report.Losses)
	assert.Equal(t, 1.0, report.PercentLost)
}

func TestCalculate_AbsentTypeInCurrent(t *testing.T) {
	initial := army(
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 100, Strength: 1},
		battlefield.Unit{Type: battlefield.UnitArchers, Size: 30, Strength: 1.5},
	)
	current := army(battlefield.Unit{Type: battlefield.UnitInfantry, Size: 80, Strength: 1})

	report := casualty.Calculate(current, initial)

	require.Len(t, report.Units, 2)
	assert.Equal(t, battlefield.UnitArchers, report.Units[1].Type)
	assert.Equal(t, 30, report.Units[1].Losses)
	assert.Equal(t, 0, report.Units[1].Current)
}

func TestCalculate_AggregatesDuplicateTypes(t *testing.T) {
	initial := army(
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 60, Strength: 1},
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 40, Strength: 1},
	)
	current := army(
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 30, Strength: 1},
		battlefield.Unit{Type: battlefield.UnitInfantry, Size: 20, Strength: 1},
	)

	report := casualty.Calculate(current, initial)

	require.Len(t, report.Units, 1)
	assert.Equal(t, 100, report.Units[0].Initial)
	assert.Equal(t, 50, report.Units[0].Current)
	assert.Equal(t, 50, report.Units[0].Losses)
}

func TestCalculate_EmptyInitial(t *testing.T) {
	report := casualty.Calculate(army(), army())
	assert.Equal(t, 0.0, report.PercentLost)
	assert.Empty(t, report.Units)
}

// Property: PercentLost is always in [0, 1] and equals the ratio of the
// aggregate sizes whenever the initial size is nonzero.
func TestPropertyPercentLost(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initSize := rapid.IntRange(1, 100_000).Draw(t, "init")
		curSize := rapid.IntRange(0, initSize).Draw(t, "cur")

		initial := army(battlefield.Unit{Type: battlefield.UnitInfantry, Size: initSize, Strength: 1})
		current := army(battlefield.Unit{Type: battlefield.UnitInfantry, Size: curSize, Strength: 1})

		report := casualty.Calculate(current, initial)
		want := float64(initSize-curSize) / float64(initSize)
		if report.PercentLost < 0 || report.PercentLost > 1 {
			t.Fatalf("percent out of range: %g", report.PercentLost)
		}
		if report.PercentLost != want {
			t.Fatalf("percent = %g, want %g", report.PercentLost, want)
		}
	})
}
