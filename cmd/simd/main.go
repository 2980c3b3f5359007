// Package main provides the arena simulation server binary: it restores
// persisted stat ledgers, runs the fixed-step simulation loop, and saves
// snapshots back on shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/damage"
	"github.com/cory-johannsen/arena/internal/game/rng"
	"github.com/cory-johannsen/arena/internal/game/stats"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/sim"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	rules := damage.NewRuleTable()
	if cfg.Rules.Dir != "" {
		rules, err = damage.LoadRulesFromDir(cfg.Rules.Dir)
		if err != nil {
			logger.Fatal("loading damage rules", zap.Error(err))
		}
		logger.Info("damage rules loaded",
			zap.String("dir", cfg.Rules.Dir),
			zap.Int("rules", rules.Len()),
		)
	}

	roller := rng.NewRoller(rng.NewCryptoSource(), logger)
	loop := sim.NewLoop(stats.Default(), rules, roller, logger)
	loop.OnResult(sim.NewHealthApplier(loop, logger))

	if cfg.Scripting.Dir != "" {
		hooks, err := loadHooks(cfg.Scripting, logger)
		if err != nil {
			logger.Fatal("loading damage hook scripts", zap.Error(err))
		}
		defer hooks.Close()
		loop.SetDamageHook(func(info damage.HookInfo) (float64, bool) {
			return hooks.AdjustDamage(scripting.DamageInfo{
				Type:           info.Type,
				Amount:         info.Amount,
				OriginalAmount: info.OriginalAmount,
				Crit:           info.Crit,
				Block:          info.Block,
				TargetID:       info.TargetID,
				SourceID:       info.SourceID,
			})
		})
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	snapshots := postgres.NewSnapshotRepository(pool.DB())

	restored, err := restoreEntities(ctx, loop, snapshots)
	if err != nil {
		logger.Fatal("restoring entity snapshots", zap.Error(err))
	}

	logger.Info("simulation server started",
		zap.Duration("tick_interval", cfg.Simulation.TickInterval),
		zap.Int("entities_restored", len(restored)),
		zap.Duration("startup", time.Since(start)),
	)

	runCtx, cancelRun := context.WithCancel(ctx)
	tickerDone := make(chan struct{})
	lc := server.NewLifecycle(logger)
	lc.Add("simulation", &server.FuncService{
		StartFn: func() error {
			loop.RunContext(runCtx, cfg.Simulation.TickInterval)
			close(tickerDone)
			return nil
		},
		StopFn: func() {
			cancelRun()
			// Snapshots are saved after Run returns; wait out the tick in
			// flight so ledgers are quiescent.
			<-tickerDone
		},
	})
	if err := lc.Run(ctx); err != nil {
		logger.Error("lifecycle terminated with error", zap.Error(err))
	}

	saveCtx, saveCancel := context.WithTimeout(ctx, 10*time.Second)
	defer saveCancel()
	for _, id := range restored {
		ledger, ok := loop.Ledger(id)
		if !ok {
			continue
		}
		if err := snapshots.Save(saveCtx, id, ledger.Snapshot()); err != nil {
			logger.Error("saving entity snapshot",
				zap.String("entity", id),
				zap.Error(err),
			)
		}
	}
	logger.Info("shutdown complete", zap.Int("entities_saved", len(restored)))
}

// loadHooks builds the Lua damage-hook dispatcher from the scripting config.
// Each subdirectory of cfg.Dir is loaded as the hook VM for the damage type
// of the same name; the reserved "default" subdirectory becomes the fallback.
func loadHooks(cfg config.ScriptingConfig, logger *zap.Logger) (*scripting.Hooks, error) {
	hooks := scripting.NewHooks(logger)
	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.Dir, e.Name())
		if e.Name() == "default" {
			err = hooks.LoadDefault(dir, cfg.InstructionLimit)
		} else {
			err = hooks.LoadType(e.Name(), dir, cfg.InstructionLimit)
		}
		if err != nil {
			hooks.Close()
			return nil, err
		}
		logger.Info("damage hook scripts loaded", zap.String("type", e.Name()))
	}
	return hooks, nil
}

// restoreEntities loads every persisted snapshot into the loop and returns
// the restored entity IDs.
func restoreEntities(ctx context.Context, loop *sim.Loop, repo *postgres.SnapshotRepository) ([]string, error) {
	ids, err := repo.ListEntityIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		snap, err := repo.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		ledger := loop.SpawnWithID(id, snap.Attributes)
		ledger.RestoreSnapshot(snap)
	}
	return ids, nil
}
