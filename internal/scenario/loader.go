// Package scenario loads battle setups — battlefield, armies, and maneuver
// catalogs — from YAML files.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/maneuver"
)

// Scenario is a ready-to-run battle setup.
type Scenario struct {
	Name        string
	Battlefield battlefield.Battlefield
	Maneuvers   *maneuver.Catalog
}

// yamlScenarioFile is the top-level YAML structure for scenario files.
type yamlScenarioFile struct {
	Scenario yamlScenario `yaml:"scenario"`
}

type yamlScenario struct {
	Name      string         `yaml:"name"`
	Terrain   yamlTerrain    `yaml:"terrain"`
	Bounds    yamlBounds     `yaml:"bounds"`
	Armies    []yamlArmy     `yaml:"armies"`
	Maneuvers []yamlManeuver `yaml:"maneuvers"`
}

type yamlTerrain struct {
	Kind            string  `yaml:"kind"`
	MovementCost    float64 `yaml:"movement_cost"`
	CombatModifier  float64 `yaml:"combat_modifier"`
	EngagementRange float64 `yaml:"engagement_range"`
}

type yamlBounds struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

type yamlArmy struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Faction   string         `yaml:"faction"`
	Position  yamlPosition   `yaml:"position"`
	Commander *yamlCommander `yaml:"commander"`
	Units     []yamlUnit     `yaml:"units"`
}

type yamlPosition struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type yamlCommander struct {
	Name          string   `yaml:"name"`
	CommandPoints int      `yaml:"command_points"`
	Bonus         float64  `yaml:"bonus"`
	Maneuvers     []string `yaml:"maneuvers"`
}

type yamlUnit struct {
	Type     string  `yaml:"type"`
	Size     int     `yaml:"size"`
	Strength float64 `yaml:"strength"`
}

type yamlManeuver struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Cost        int        `yaml:"cost"`
	Effect      yamlEffect `yaml:"effect"`
	Script      string     `yaml:"script"`
}

type yamlEffect struct {
	Attack       float64 `yaml:"attack"`
	Defense      float64 `yaml:"defense"`
	Morale       float64 `yaml:"morale"`
	ForceRetreat bool    `yaml:"force_retreat"`
}

// LoadFromFile reads and validates a single scenario YAML file.
//
// Precondition: path must point to a valid YAML scenario file.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a scenario from YAML bytes. Armies
// without an explicit ID get a generated UUID; effect multipliers left at
// zero default to 1 (no change).
//
// Precondition: data must be valid YAML conforming to the scenario schema.
// Postcondition: Returns a Scenario whose Battlefield passes Validate and
// whose Maneuvers catalog holds every declared maneuver, or a non-nil error.
func LoadFromBytes(data []byte) (*Scenario, error) {
	var file yamlScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	raw := file.Scenario
	if raw.Name == "" {
		return nil, fmt.Errorf("scenario has no name")
	}

	bf := battlefield.Battlefield{
		Terrain: battlefield.Terrain{
			Kind:            raw.Terrain.Kind,
			MovementCost:    raw.Terrain.MovementCost,
			CombatModifier:  raw.Terrain.CombatModifier,
			EngagementRange: raw.Terrain.EngagementRange,
		},
		Bounds: battlefield.Bounds{
			MinX: raw.Bounds.MinX,
			MinY: raw.Bounds.MinY,
			MaxX: raw.Bounds.MaxX,
			MaxY: raw.Bounds.MaxY,
		},
	}
	for _, a := range raw.Armies {
		bf.Armies = append(bf.Armies, convertArmy(a))
	}

	if err := bf.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", raw.Name, err)
	}

	catalog := maneuver.NewCatalog()
	for _, m := range raw.Maneuvers {
		if err := catalog.Register(convertManeuver(m)); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", raw.Name, err)
		}
	}

	// Commanders may only reference declared maneuvers.
	for _, a := range bf.Armies {
		if a.Commander == nil {
			continue
		}
		for _, id := range a.Commander.Maneuvers {
			if _, err := catalog.Get(id); err != nil {
				return nil, fmt.Errorf("scenario %q: army %q commander references %w", raw.Name, a.ID, err)
			}
		}
	}

	return &Scenario{
		Name:        raw.Name,
		Battlefield: bf,
		Maneuvers:   catalog,
	}, nil
}

// LoadFromDir loads all YAML files in a directory as scenarios.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated scenarios or the first error encountered.
func LoadFromDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		s, err := LoadFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func convertArmy(a yamlArmy) battlefield.Army {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	army := battlefield.Army{
		ID:       id,
		Name:     a.Name,
		Faction:  a.Faction,
		Position: battlefield.Position{X: a.Position.X, Y: a.Position.Y},
		Status:   battlefield.StatusActive,
	}
	for _, u := range a.Units {
		army.Units = append(army.Units, battlefield.Unit{
			Type:     battlefield.UnitType(u.Type),
			Size:     u.Size,
			Strength: u.Strength,
		})
	}
	if a.Commander != nil {
		army.Commander = &battlefield.Commander{
			Name:          a.Commander.Name,
			CommandPoints: a.Commander.CommandPoints,
			Bonus:         a.Commander.Bonus,
			Maneuvers:     append([]string(nil), a.Commander.Maneuvers...),
		}
	}
	return army
}

func convertManeuver(m yamlManeuver) maneuver.Maneuver {
	effect := maneuver.Modifier{
		Attack:       m.Effect.Attack,
		Defense:      m.Effect.Defense,
		Morale:       m.Effect.Morale,
		ForceRetreat: m.Effect.ForceRetreat,
	}
	// Unset multipliers mean "no change".
	if effect.Attack == 0 {
		effect.Attack = 1
	}
	if effect.Defense == 0 {
		effect.Defense = 1
	}
	if effect.Morale == 0 {
		effect.Morale = 1
	}
	return maneuver.Maneuver{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Cost:        m.Cost,
		Effect:      effect,
		Script:      m.Script,
	}
}
