// Civilian production planner: the sole creator of agents.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

// stepPlanner runs step 5. Each populated body may commission one mining
// ship and one freighter per tick when the opportunity clears its threshold
// and the local treasury can pay. The check and the debit are one step.
func (s *Simulation) stepPlanner(tick uint64) {
	p := s.Params.Planner
	counts := s.Agents.TargetCounts()

	for _, b := range s.Galaxy.Bodies {
		if !b.Inhabited() || (p.RequireShipyard && !b.Shipyard) {
			continue
		}
		mining, trade := s.Agents.CountHome(b.ID)
		if p.MaxAgentsPerBody > 0 && mining+trade >= p.MaxAgentsPerBody {
			continue
		}

		if score, ok := s.bestUnclaimedScore(b, counts); ok && score > p.CommissionThreshold {
			if s.commission(b, treasury.Money(p.MiningShipCost)) {
				a := s.Spawner.SpawnMining(b.ID, agents.OwnerCivilian, s.Params.miningSpec(), tick)
				s.register(s.Agents.AddMining(a), a.ID, b, "mining ship", tick)
				mining++
			}
		}

		if p.MaxAgentsPerBody > 0 && mining+trade >= p.MaxAgentsPerBody {
			continue
		}
		if plan, err := s.bestRoute(b.ID, s.Params.Trade.CargoCapacity); err == nil && plan.profit > p.FreighterCommissionThreshold {
			if s.commission(b, treasury.Money(p.FreighterCost)) {
				f := s.Spawner.SpawnTrade(b.ID, agents.OwnerCivilian, s.Params.freighterSpec(), tick)
				s.register(s.Agents.AddTrade(f), f.ID, b, "freighter", tick)
			}
		}
	}
}

// bestUnclaimedScore scores the targets in a body's system that no ship has
// under contract, as a newly built ship would see them.
func (s *Simulation) bestUnclaimedScore(home *galaxy.Body, counts map[agents.Target]int) (float64, bool) {
	probe := &agents.MiningAgent{
		Home:          home.ID,
		Location:      home.ID,
		CargoCapacity: s.Params.Mining.CargoCapacity,
		FuelCapacity:  s.Params.Mining.FuelCapacity,
	}
	best, found := 0.0, false
	for _, b := range s.Galaxy.BodiesInSystem(home.System) {
		if b.Inhabited() {
			continue
		}
		for _, y := range b.Yields {
			t := agents.Target{Body: b.ID, Resource: y.Resource}
			if counts[t] > 0 {
				continue
			}
			c, ok := s.scoreTarget(probe, t, 0)
			if ok && (!found || c.adjusted > best) {
				best, found = c.adjusted, true
			}
		}
	}
	return best, found
}

// commission debits construction cost from the body treasury.
func (s *Simulation) commission(b *galaxy.Body, cost decimal.Decimal) bool {
	err := s.Treasury.Debit(treasury.KindConstruction, cost, b.ID)
	if errors.Is(err, treasury.ErrInsufficientFunds) {
		slog.Debug("commission skipped", "body", b.Name, "error", err)
		return false
	}
	if err != nil {
		slog.Warn("commission failed", "body", b.Name, "error", err)
		return false
	}
	return true
}

func (s *Simulation) register(err error, id agents.AgentID, b *galaxy.Body, kind string, tick uint64) {
	if err != nil {
		slog.Warn("agent registration failed", "agent", id, "error", err)
		return
	}
	s.Stats.Commissioned++
	s.EmitEvent(Event{
		Tick:        tick,
		Category:    "planner",
		Description: fmt.Sprintf("%s commissions a %s (#%d)", b.Name, kind, id),
		Meta:        map[string]any{"agent": id, "body": b.ID},
	})
}
