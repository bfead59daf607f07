// Demand refresh: consumption, deposit regeneration and population growth.
// This is step 1 of the tick.
package engine

import (
	"log/slog"
	"math"

	"github.com/talgya/starmarket/internal/economy"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

// refreshDemand recomputes the monthly demand of every body.
func (s *Simulation) refreshDemand() {
	for _, b := range s.Galaxy.Bodies {
		pop := s.Population.Population(b.ID)
		v := s.Params.DemandRates.ComputeDemand(b.Class, pop, s.Population.InfrastructureModifier(b.ID))
		s.Market.SetDemand(b.ID, v)
	}
}

// stepDemand runs step 1: monthly growth on month boundaries, demand
// refresh, daily consumption and regeneration, and shortage tracking.
func (s *Simulation) stepDemand(tick uint64) {
	if s.isMonthBoundary(tick) {
		s.growPopulation()
	}
	s.refreshDemand()

	ledger := s.Ledger()
	perTick := 1 / float64(s.Params.TicksPerMonth)
	for _, b := range s.Galaxy.Bodies {
		demand := s.Market.Demand(b.ID)
		if b.Inhabited() {
			if s.Params.ConsumptionEnabled {
				s.consume(b.ID, demand, perTick)
			}
		} else {
			s.regenerate(b)
		}

		for r, v := range demand {
			res := galaxy.Resource(r)
			if sh, ok := s.Shortages.Observe(b.ID, res, ledger.Stockpile(b.ID, res), v); ok {
				s.Stats.Shortages++
				s.ShortageSink.Shortage(sh)
			}
		}
	}
}

// consume withdraws one day of demand, clamped to stock. The population pays
// base value for what it takes, credited to the body's treasury.
func (s *Simulation) consume(body galaxy.BodyID, demand economy.Volumes, perTick float64) {
	var spent float64
	for r, v := range demand {
		if v <= 0 {
			continue
		}
		res := galaxy.Resource(r)
		got := s.Ledger().Withdraw(body, res, v*perTick)
		s.Stats.Consumed += got
		spent += got * economy.BaseValue(res)
	}
	if spent <= 0 {
		return
	}
	if err := s.Treasury.Post(treasury.KindConsumerSpending, treasury.Money(spent), body); err != nil {
		slog.Warn("consumer spending rejected", "body", body, "error", err)
	}
}

// regenerate accumulates stock of each assigned resource on an uninhabited
// body, up to the deposit cap.
func (s *Simulation) regenerate(b *galaxy.Body) {
	if s.Params.RegenRate <= 0 {
		return
	}
	ledger := s.Ledger()
	yield := s.Research.ExtractionYield()
	for _, y := range b.Yields {
		limit := s.Params.DepositCap * y.Grade
		have := ledger.Stockpile(b.ID, y.Resource)
		if have >= limit {
			continue
		}
		add := math.Min(y.Grade*s.Params.RegenRate*yield, limit-have)
		if add > 0 {
			_ = ledger.Deposit(b.ID, y.Resource, add)
			s.Stats.Regenerated += add
		}
	}
}

// growPopulation applies one month of annual growth to populated bodies.
func (s *Simulation) growPopulation() {
	if s.Params.PopulationGrowth == 0 {
		return
	}
	monthsPerYear := DaysPerYear / float64(s.Params.TicksPerMonth)
	factor := math.Pow(1+s.Params.PopulationGrowth, 1/monthsPerYear)
	for _, b := range s.Galaxy.Bodies {
		if b.Inhabited() {
			b.Population = math.Round(b.Population * factor)
		}
	}
}
