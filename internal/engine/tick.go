// Package engine runs the galactic economy: the fixed-order daily tick, the
// mining and trade controllers, the production planner and the real-time loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DaysPerYear is the length of a sim-year. One tick is one day.
const DaysPerYear = 360

// Engine drives a Simulation forward in real time.
type Engine struct {
	Sim      *Simulation
	Interval time.Duration // Base tick interval at speed 1.0

	// Callbacks, populated during setup. Both run outside the simulation lock.
	OnDay   func(tick uint64) // After every tick
	OnMonth func(tick uint64) // After each month-closing tick

	mu      sync.Mutex
	speed   float64 // 1.0 = real-time, 0 = paused
	running bool
}

// NewEngine creates an engine with default settings.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:      sim,
		Interval: time.Second,
		speed:    1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses.
func (e *Engine) SetSpeed(v float64) error {
	if v < 0 {
		return fmt.Errorf("speed must be non-negative, got %v", v)
	}
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", v)
	return nil
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the simulation loop. Blocks until ctx is cancelled or a tick fails.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	slog.Info("simulation engine started", "tick", e.Sim.CurrentTick(), "speed", e.Speed())

	for {
		if ctx.Err() != nil {
			slog.Info("simulation engine stopped", "tick", e.Sim.CurrentTick())
			return nil
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused; sleep briefly and check again.
			sleepCtx(ctx, 100*time.Millisecond)
			continue
		}

		start := time.Now()
		if err := e.step(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			return err
		}

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			sleepCtx(ctx, target-elapsed)
		}
	}
}

// step advances the simulation by one tick and fires callbacks.
func (e *Engine) step(ctx context.Context) error {
	if err := e.Sim.StepTick(ctx); err != nil {
		return err
	}
	tick := e.Sim.CurrentTick()

	if e.OnDay != nil {
		e.OnDay(tick)
	}
	if e.Sim.isMonthBoundary(tick) && e.OnMonth != nil {
		e.OnMonth(tick)
	}
	return nil
}

// sleepCtx sleeps for d or until ctx is done. It returns false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimTime returns a human-readable simulation time string from a tick number.
func SimTime(tick uint64) string {
	year := tick/DaysPerYear + 1
	dayOfYear := tick % DaysPerYear
	month := dayOfYear/30 + 1
	day := dayOfYear%30 + 1
	return fmt.Sprintf("Year %d, Month %d, Day %d", year, month, day)
}
