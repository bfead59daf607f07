// External events delivered between ticks: combat losses, resupply and
// population updates from collaborating subsystems.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/galaxy"
)

// Command is an external event applied at the start of the next tick.
type Command interface {
	Apply(s *Simulation) error
}

// DestroyAgent removes a ship after combat loss or scrapping. Any cargo
// aboard is lost with it and counted in SimStats.CargoLost.
type DestroyAgent struct {
	ID     agents.AgentID
	Reason string
}

func (c DestroyAgent) Apply(s *Simulation) error {
	res, qty := cargoAboard(s.Agents, c.ID)
	if err := s.Agents.Remove(c.ID); err != nil {
		return err
	}
	meta := map[string]any{"agent": c.ID}
	if qty > 0 {
		s.Stats.CargoLost += qty
		meta["resource"] = res.String()
		meta["cargo_lost"] = qty
	}
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Category:    "command",
		Description: fmt.Sprintf("agent %d destroyed (%s)", c.ID, c.Reason),
		Meta:        meta,
	})
	return nil
}

func cargoAboard(d *agents.Directory, id agents.AgentID) (galaxy.Resource, float64) {
	if a, err := d.Mining(id); err == nil {
		return a.CargoResource, a.Cargo
	}
	if f, err := d.Trade(id); err == nil && f.Cargo != nil {
		return f.Cargo.Resource, f.Cargo.Quantity
	}
	return 0, 0
}

// RefuelAgent tops up a mining ship and clears its halted flag.
type RefuelAgent struct {
	ID agents.AgentID
}

func (c RefuelAgent) Apply(s *Simulation) error {
	a, err := s.Agents.Mining(c.ID)
	if err != nil {
		return err
	}
	a.Fuel = a.FuelCapacity
	a.Halted = false
	return nil
}

// SetPopulation overwrites a body's population.
type SetPopulation struct {
	Body       galaxy.BodyID
	Population float64
}

func (c SetPopulation) Apply(s *Simulation) error {
	b := s.Galaxy.Body(c.Body)
	if b == nil {
		return fmt.Errorf("set population of body %d: unknown body", c.Body)
	}
	if c.Population < 0 {
		return fmt.Errorf("set population of body %d: negative population %.0f", c.Body, c.Population)
	}
	b.Population = c.Population
	return nil
}

// Enqueue schedules a command for the start of the next tick. It is safe to
// call while a tick is running.
func (s *Simulation) Enqueue(c Command) {
	s.cmdMu.Lock()
	s.commands = append(s.commands, c)
	s.cmdMu.Unlock()
}

// applyCommands drains the queue in arrival order. Stale references are
// logged and dropped.
func (s *Simulation) applyCommands() {
	s.cmdMu.Lock()
	queue := s.commands
	s.commands = nil
	s.cmdMu.Unlock()

	for _, c := range queue {
		err := c.Apply(s)
		switch {
		case err == nil:
		case errors.Is(err, agents.ErrAgentNotFound):
			slog.Warn("dropping stale event", "event", fmt.Sprintf("%T", c), "error", err)
		default:
			slog.Warn("event rejected", "event", fmt.Sprintf("%T", c), "error", err)
		}
	}
}
