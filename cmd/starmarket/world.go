package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/persistence"
)

// openDB opens the configured database, creating the sqlite directory if needed.
func openDB() (*persistence.DB, error) {
	sc := cfg.Simulation
	if sc.DBDriver == "sqlite" {
		if dir := filepath.Dir(sc.DBDSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}
	db, err := persistence.Open(sc.DBDriver, sc.DBDSN)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "driver", sc.DBDriver, "dsn", sc.DBDSN)
	return db, nil
}

// loadOrCreate restores the saved world unless fresh is set or nothing is
// saved, in which case it builds one from the scenario file or generates one.
func loadOrCreate(db *persistence.DB, fresh bool) (*engine.Simulation, error) {
	p := cfg.Params()

	if !fresh {
		ok, err := db.HasWorld()
		if err != nil {
			return nil, fmt.Errorf("check saved world: %w", err)
		}
		if ok {
			slog.Info("found saved world state, loading...")
			return db.LoadWorld(p)
		}
	}

	if path := cfg.Simulation.Scenario; path != "" {
		slog.Info("building world from scenario", "path", path)
		sc, err := engine.LoadScenario(path)
		if err != nil {
			return nil, err
		}
		return sc.Build(p)
	}

	gc := cfg.GenConfig()
	if gc.Seed == 0 {
		gc.Seed = rand.Int63()
	}
	slog.Info("no saved state found, generating new galaxy...", "seed", gc.Seed)
	g, deposits, err := galaxy.Generate(gc)
	if err != nil {
		return nil, fmt.Errorf("generate galaxy: %w", err)
	}
	sim, err := engine.New(g, deposits, p)
	if err != nil {
		return nil, err
	}
	sim.Seed = gc.Seed
	return sim, nil
}

// logSummary prints a one-line overview of the economy.
func logSummary(msg string, sim *engine.Simulation) {
	sim.View(func(s *engine.Simulation) {
		var population float64
		for _, b := range s.Galaxy.Bodies {
			population += b.Population
		}
		total, _ := s.Treasury.Total().Float64()
		slog.Info(msg,
			"tick", s.LastTick,
			"sim_time", engine.SimTime(s.LastTick),
			"systems", len(s.Galaxy.Systems),
			"bodies", len(s.Galaxy.Bodies),
			"inhabited", s.Galaxy.InhabitedCount(),
			"population", humanize.Comma(int64(population)),
			"mining_agents", len(s.Agents.MiningAgents()),
			"trade_agents", len(s.Agents.TradeAgents()),
			"treasury", humanize.Commaf(total),
		)
	})
}
