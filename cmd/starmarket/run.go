package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/starmarket/internal/api"
	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/persistence"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation in real time with the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		fresh, _ := cmd.Flags().GetBool("fresh")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sim, err := loadOrCreate(db, fresh)
		if err != nil {
			return err
		}
		logSummary("world ready", sim)

		// Save on fresh worlds only (loaded worlds are already saved).
		if sim.CurrentTick() == 0 {
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("initial save failed", "error", err)
			}
		}

		eng := engine.NewEngine(sim)
		eng.Interval = cfg.Simulation.TickInterval
		wireAutosave(eng, db, cfg.Simulation.AutosaveDays)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return eng.Run(ctx) })

		if cfg.API.Port > 0 {
			if cfg.API.AdminKey == "" {
				slog.Warn("STARMARKET_API_ADMIN_KEY not set, admin POST endpoints will be disabled")
			}
			srv := &api.Server{
				Sim:         sim,
				Eng:         eng,
				DB:          db,
				Port:        cfg.API.Port,
				AdminKey:    cfg.API.AdminKey,
				CORSOrigins: cfg.API.CORSOrigins,
				Limiter:     api.NewRateLimiter(cfg.API.RatePerSecond, cfg.API.Burst),
			}
			g.Go(func() error { return srv.Start(ctx) })
			fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
		}
		fmt.Println("Starting simulation... (Ctrl+C to stop)")

		runErr := g.Wait()
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			slog.Error("simulation stopped with error", "error", runErr)
		}

		// Final save on shutdown.
		slog.Info("final save...")
		if err := db.SaveWorldState(sim); err != nil {
			return fmt.Errorf("final save failed: %w", err)
		}
		fmt.Println("Simulation stopped. World state saved.")
		return runErr
	},
}

func init() {
	runCmd.Flags().Bool("fresh", false, "ignore saved state and build a new world")
}

// wireAutosave saves the world every `days` ticks and persists new events.
func wireAutosave(eng *engine.Engine, db *persistence.DB, days int) {
	var savedThrough uint64
	eng.OnDay = func(tick uint64) {
		if days <= 0 || tick%uint64(days) != 0 {
			return
		}
		var fresh []engine.Event
		eng.Sim.View(func(s *engine.Simulation) {
			for _, e := range s.Events {
				if e.Tick > savedThrough {
					fresh = append(fresh, e)
				}
			}
		})
		if err := db.SaveEvents(fresh); err != nil {
			slog.Error("event save failed", "error", err)
		} else {
			savedThrough = tick
		}
		if err := db.SaveWorldState(eng.Sim); err != nil {
			slog.Error("autosave failed", "error", err, "tick", tick)
		}
	}
	eng.OnMonth = func(tick uint64) {
		logSummary("month closed", eng.Sim)
	}
}
