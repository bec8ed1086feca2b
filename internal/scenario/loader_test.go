package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averyhall/warsim/internal/game/battlefield"
)

const riverfordYAML = `
scenario:
  name: Riverford Crossing
  terrain:
    kind: plains
    movement_cost: 1.0
    combat_modifier: 1.0
    engagement_range: 20
  bounds:
    min_x: 0
    min_y: 0
    max_x: 100
    max_y: 100
  armies:
    - id: crimson-first
      name: First Legion
      faction: crimson
      position: {x: 10, y: 50}
      commander:
        name: Marshal Voss
        command_points: 5
        bonus: 0.1
        maneuvers: [flanking]
      units:
        - {type: infantry, size: 400, strength: 1.0}
        - {type: cavalry, size: 80, strength: 1.5}
    - name: Azure Host
      faction: azure
      position: {x: 90, y: 50}
      units:
        - {type: infantry, size: 450, strength: 1.0}
  maneuvers:
    - id: flanking
      name: Flanking Charge
      description: Cavalry sweep around the enemy line.
      cost: 2
      effect: {attack: 1.25}
      script: flanking_effect
`

func TestLoadFromBytes(t *testing.T) {
	s, err := LoadFromBytes([]byte(riverfordYAML))
	require.NoError(t, err)

	assert.Equal(t, "Riverford Crossing", s.Name)
	require.Len(t, s.Battlefield.Armies, 2)

	first := s.Battlefield.Armies[0]
	assert.Equal(t, "crimson-first", first.ID)
	assert.Equal(t, battlefield.StatusActive, first.Status)
	assert.Equal(t, 480, first.TotalSize())
	require.NotNil(t, first.Commander)
	assert.Equal(t, 5, first.Commander.CommandPoints)

	// Armies without an explicit ID get one generated.
	second := s.Battlefield.Armies[1]
	assert.NotEmpty(t, second.ID)
	assert.Nil(t, second.Commander)

	m, err := s.Maneuvers.Get("flanking")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Cost)
	assert.InDelta(t, 1.25, m.Effect.Attack, 1e-9)
	// Unset multipliers default to no change.
	assert.InDelta(t, 1.0, m.Effect.Defense, 1e-9)
	assert.InDelta(t, 1.0, m.Effect.Morale, 1e-9)
	assert.Equal(t, "flanking_effect", m.Script)
}

func TestLoadFromBytes_MissingName(t *testing.T) {
	_, err := LoadFromBytes([]byte("scenario:\n  armies: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}

func TestLoadFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("scenario: [unclosed"))
	require.Error(t, err)
}

func TestLoadFromBytes_InvalidBattlefield(t *testing.T) {
	// A single army cannot form a battle.
	const oneArmy = `
scenario:
  name: Lonely March
  terrain: {kind: plains, movement_cost: 1, combat_modifier: 1, engagement_range: 20}
  bounds: {min_x: 0, min_y: 0, max_x: 100, max_y: 100}
  armies:
    - name: First Legion
      faction: crimson
      position: {x: 10, y: 50}
      units: [{type: infantry, size: 100, strength: 1.0}]
`
	_, err := LoadFromBytes([]byte(oneArmy))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lonely March")
}

func TestLoadFromBytes_UnknownCommanderManeuver(t *testing.T) {
	const badRef = `
scenario:
  name: Riverford Crossing
  terrain: {kind: plains, movement_cost: 1, combat_modifier: 1, engagement_range: 20}
  bounds: {min_x: 0, min_y: 0, max_x: 100, max_y: 100}
  armies:
    - id: a
      name: First Legion
      faction: crimson
      position: {x: 10, y: 50}
      commander: {name: Voss, command_points: 5, maneuvers: [shield_wall]}
      units: [{type: infantry, size: 100, strength: 1.0}]
    - id: b
      name: Azure Host
      faction: azure
      position: {x: 90, y: 50}
      units: [{type: infantry, size: 100, strength: 1.0}]
`
	_, err := LoadFromBytes([]byte(badRef))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shield_wall")
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "riverford.yaml"), []byte(riverfordYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	scenarios, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "Riverford Crossing", scenarios[0].Name)
}

func TestLoadFromDir_Missing(t *testing.T) {
	_, err := LoadFromDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
