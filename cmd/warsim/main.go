// Package main provides the battle simulator binary: it loads a scenario,
// runs the battle on the configured tick interval, and archives the result.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/averyhall/warsim/internal/config"
	"github.com/averyhall/warsim/internal/engine"
	"github.com/averyhall/warsim/internal/game/combat"
	"github.com/averyhall/warsim/internal/game/maneuver"
	"github.com/averyhall/warsim/internal/observability"
	"github.com/averyhall/warsim/internal/scenario"
	"github.com/averyhall/warsim/internal/scripting"
	"github.com/averyhall/warsim/internal/server"
	"github.com/averyhall/warsim/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenarioPath := flag.String("scenario", "content/scenarios/riverford.yaml", "path to scenario YAML file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	scnStart := time.Now()
	scn, err := scenario.LoadFromFile(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}
	logger.Info("scenario loaded",
		zap.String("scenario", scn.Name),
		zap.Int("armies", len(scn.Battlefield.Armies)),
		zap.Strings("maneuvers", scn.Maneuvers.IDs()),
		zap.Duration("elapsed", time.Since(scnStart)),
	)

	var scripts maneuver.ScriptRunner
	if cfg.Scripting.ScriptDir != "" {
		mgr := scripting.NewManager(logger)
		if err := mgr.LoadDir(cfg.Scripting.ScriptDir, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading maneuver scripts", zap.Error(err))
		}
		defer mgr.Close()
		scripts = mgr
		logger.Info("maneuver scripts loaded", zap.String("dir", cfg.Scripting.ScriptDir))
	}

	var store engine.ResultStore
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewArchive(postgres.NewBattleRepository(pool.DB()), scn.Name)
	}

	orch := engine.NewOrchestrator(engine.Options{
		Config:   cfg.Engine,
		Catalog:  scn.Maneuvers,
		Resolver: maneuver.NewResolver(scripts, logger),
		Store:    store,
		Logger:   logger,
	})

	orch.OnRound(func(r combat.Round) {
		for _, ev := range r.Events {
			logger.Info("battle event",
				zap.Int("round", r.Number),
				zap.String("kind", string(ev.Kind)),
				zap.String("narrative", ev.Narrative),
			)
		}
	})
	orch.OnBattleEnd(func(res engine.Result) {
		logger.Info("battle concluded",
			zap.String("battle_id", res.BattleID),
			zap.String("victor", res.Victor),
			zap.Bool("stalemate", res.Stalemate),
			zap.Int("rounds", res.Rounds),
			zap.Int("strategic_points", res.StrategicPoints),
			zap.Int("survivors", len(res.Survivors)),
		)
		for _, rep := range res.Reports {
			logger.Info("casualty report",
				zap.String("army", rep.ArmyName),
				zap.String("faction", rep.Faction),
				zap.Int("losses", rep.Losses),
				zap.Float64("percent_lost", rep.PercentLost),
			)
		}
		// The battle is the program's sole purpose; leave once it is decided.
		cancel()
	})

	logger.Info("starting battle",
		zap.String("scenario", scn.Name),
		zap.Duration("tick_interval", cfg.Engine.TickInterval),
		zap.Duration("startup", time.Since(start)),
	)

	lc := server.NewLifecycle(logger)
	lc.Add("battle", server.NewBattleService(orch, scn.Battlefield))
	if err := lc.Run(ctx); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}
}
