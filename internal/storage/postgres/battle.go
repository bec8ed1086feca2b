package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averyhall/warsim/internal/engine"
	"github.com/averyhall/warsim/internal/game/casualty"
	"github.com/averyhall/warsim/internal/game/combat"
)

// ErrBattleNotFound is returned when a battle lookup yields no results.
var ErrBattleNotFound = errors.New("battle not found")

// BattleRecord is an archived battle as stored in the database.
type BattleRecord struct {
	ID              string
	Scenario        string
	Victor          string
	Stalemate       bool
	Rounds          int
	StrategicPoints int
	Log             []combat.Round
	Casualties      []casualty.Report
	CreatedAt       time.Time
}

// BattleRepository persists terminal battle results.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// SaveResult archives a battle result under the given scenario name. The
// battle row and its casualty rows are written in one transaction.
//
// Precondition: res.BattleID must be a valid UUID not already archived.
// Postcondition: The battle and all its casualty reports are persisted, or
// nothing is on error.
func (r *BattleRepository) SaveResult(ctx context.Context, scenario string, res engine.Result) error {
	logJSON, err := json.Marshal(res.Log)
	if err != nil {
		return fmt.Errorf("encoding battle log: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO battles (id, scenario, victor, stalemate, rounds, strategic_points, log)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.BattleID, scenario, res.Victor, res.Stalemate, res.Rounds, res.StrategicPoints, logJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting battle: %w", err)
	}

	for _, rep := range res.Reports {
		unitsJSON, err := json.Marshal(rep.Units)
		if err != nil {
			return fmt.Errorf("encoding unit losses: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO battle_casualties
			   (battle_id, army_id, army_name, faction, initial_size, current_size, losses, percent_lost, units)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			res.BattleID, rep.ArmyID, rep.ArmyName, rep.Faction,
			rep.InitialSize, rep.CurrentSize, rep.Losses, rep.PercentLost, unitsJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting casualties for army %s: %w", rep.ArmyID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing battle: %w", err)
	}
	return nil
}

// GetResult retrieves an archived battle with its casualty reports.
//
// Postcondition: Returns the BattleRecord or ErrBattleNotFound.
func (r *BattleRepository) GetResult(ctx context.Context, battleID string) (BattleRecord, error) {
	var rec BattleRecord
	var logJSON []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, scenario, victor, stalemate, rounds, strategic_points, log, created_at
		 FROM battles WHERE id = $1`,
		battleID,
	).Scan(&rec.ID, &rec.Scenario, &rec.Victor, &rec.Stalemate,
		&rec.Rounds, &rec.StrategicPoints, &logJSON, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BattleRecord{}, ErrBattleNotFound
		}
		return BattleRecord{}, fmt.Errorf("querying battle: %w", err)
	}
	if err := json.Unmarshal(logJSON, &rec.Log); err != nil {
		return BattleRecord{}, fmt.Errorf("decoding battle log: %w", err)
	}

	rec.Casualties, err = r.casualtiesFor(ctx, battleID)
	if err != nil {
		return BattleRecord{}, err
	}
	return rec, nil
}

// ListByScenario returns archived battles for a scenario, newest first,
// without their logs or casualty details.
func (r *BattleRepository) ListByScenario(ctx context.Context, scenario string) ([]BattleRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, scenario, victor, stalemate, rounds, strategic_points, created_at
		 FROM battles WHERE scenario = $1 ORDER BY created_at DESC`,
		scenario,
	)
	if err != nil {
		return nil, fmt.Errorf("querying battles: %w", err)
	}
	defer rows.Close()

	var records []BattleRecord
	for rows.Next() {
		var rec BattleRecord
		if err := rows.Scan(&rec.ID, &rec.Scenario, &rec.Victor, &rec.Stalemate,
			&rec.Rounds, &rec.StrategicPoints, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating battle rows: %w", err)
	}
	return records, nil
}

func (r *BattleRepository) casualtiesFor(ctx context.Context, battleID string) ([]casualty.Report, error) {
	rows, err := r.db.Query(ctx,
		`SELECT army_id, army_name, faction, initial_size, current_size, losses, percent_lost, units
		 FROM battle_casualties WHERE battle_id = $1 ORDER BY id`,
		battleID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying casualties: %w", err)
	}
	defer rows.Close()

	var reports []casualty.Report
	for rows.Next() {
		var rep casualty.Report
		var unitsJSON []byte
		if err := rows.Scan(&rep.ArmyID, &rep.ArmyName, &rep.Faction,
			&rep.InitialSize, &rep.CurrentSize, &rep.Losses, &rep.PercentLost, &unitsJSON); err != nil {
			return nil, fmt.Errorf("scanning casualty row: %w", err)
		}
		if err := json.Unmarshal(unitsJSON, &rep.Units); err != nil {
			return nil, fmt.Errorf("decoding unit losses: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating casualty rows: %w", err)
	}
	return reports, nil
}

// Archive binds a BattleRepository to a scenario name so the orchestrator
// can save results through the narrow ResultStore interface.
type Archive struct {
	repo     *BattleRepository
	scenario string
}

// NewArchive creates a ResultStore saving under the given scenario name.
func NewArchive(repo *BattleRepository, scenario string) *Archive {
	return &Archive{repo: repo, scenario: scenario}
}

// SaveResult implements engine.ResultStore.
func (a *Archive) SaveResult(ctx context.Context, res engine.Result) error {
	return a.repo.SaveResult(ctx, a.scenario, res)
}
