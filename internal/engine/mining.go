// Mining agent controller: contract scanning and round trips.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

// ProfitabilityScore returns the raw score of a mining target and the score
// divided by (1 + competitors) to penalize crowding.
func ProfitabilityScore(homePrice, cargo, fuelCost, upkeep float64, competitors int) (raw, adjusted float64) {
	raw = homePrice*cargo - (fuelCost + upkeep)
	if competitors < 0 {
		competitors = 0
	}
	return raw, raw / float64(1+competitors)
}

// candidate is one scored mining target.
type candidate struct {
	target   agents.Target
	raw      float64
	adjusted float64
	distance float64
}

// better orders candidates: adjusted score, raw score, distance, then identity.
func (c candidate) better(o candidate) bool {
	if c.adjusted != o.adjusted {
		return c.adjusted > o.adjusted
	}
	if c.raw != o.raw {
		return c.raw > o.raw
	}
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	if c.target.Body != o.target.Body {
		return c.target.Body < o.target.Body
	}
	return c.target.Resource < o.target.Resource
}

// roundTripDays is the time a trip keeps a ship busy.
func (s *Simulation) roundTripDays(home, target galaxy.BodyID) uint64 {
	loading := uint64(math.Ceil(s.Params.Mining.LoadingDays * s.Research.LoadingTime()))
	days := 2*s.Movement.TravelTime(home, target) + loading
	if days == 0 {
		days = 1
	}
	return days
}

// effectiveCapacity is cargo per trip after research modifiers.
func (s *Simulation) effectiveCapacity(a *agents.MiningAgent) float64 {
	return a.CargoCapacity * s.Research.ExtractionYield()
}

// scoreTarget evaluates a target for an agent against the price snapshot and
// the current stock at the target. competitors excludes the agent itself.
func (s *Simulation) scoreTarget(a *agents.MiningAgent, t agents.Target, competitors int) (candidate, bool) {
	if !s.Prices.Tradable(a.Home, t.Resource) {
		return candidate{}, false
	}
	dist := s.Movement.Distance(a.Home, t.Body)
	fuelNeed := 2 * dist * s.Params.Mining.FuelBurn
	if fuelNeed > a.FuelCapacity {
		return candidate{}, false
	}
	cargo := math.Min(s.effectiveCapacity(a), s.Ledger().Stockpile(t.Body, t.Resource))
	fuelCost := fuelNeed * s.Params.Mining.FuelPrice
	upkeep := s.Params.Mining.UpkeepPerDay * float64(s.roundTripDays(a.Home, t.Body))
	raw, adj := ProfitabilityScore(s.Prices.Value(a.Home, t.Resource), cargo, fuelCost, upkeep, competitors)
	return candidate{target: t, raw: raw, adjusted: adj, distance: dist}, true
}

// competitorsFor counts other agents holding a contract on t.
func competitorsFor(a *agents.MiningAgent, t agents.Target, counts map[agents.Target]int) int {
	n := counts[t]
	if a.State == agents.StateFulfillingContract && a.Contract != nil && a.Contract.Target == t {
		n--
	}
	return n
}

// bestTarget scans every uninhabited body in the home system.
func (s *Simulation) bestTarget(a *agents.MiningAgent, counts map[agents.Target]int) (candidate, error) {
	home := s.Galaxy.Body(a.Home)
	if home == nil {
		return candidate{}, ErrNoViableTarget
	}
	var best candidate
	found := false
	for _, b := range s.Galaxy.BodiesInSystem(home.System) {
		if b.Inhabited() || b.ID == a.Home {
			continue
		}
		for _, y := range b.Yields {
			t := agents.Target{Body: b.ID, Resource: y.Resource}
			c, ok := s.scoreTarget(a, t, competitorsFor(a, t, counts))
			if !ok || c.adjusted <= s.Params.Mining.Threshold {
				continue
			}
			if !found || c.better(best) {
				best, found = c, true
			}
		}
	}
	if !found {
		return candidate{}, ErrNoViableTarget
	}
	return best, nil
}

// miningIntent is the outcome of the read-only evaluation phase.
type miningIntent struct {
	scanned bool
	target  candidate
	err     error
}

// stepMining runs step 3. Phase A scans in parallel per star system against
// the frozen snapshot; phase B commits every agent in ID order.
func (s *Simulation) stepMining(ctx context.Context, tick uint64) error {
	list := s.Agents.MiningAgents()
	counts := s.Agents.TargetCounts()
	intents := make([]miningIntent, len(list))

	bySystem := make(map[galaxy.SystemID][]int)
	var systems []galaxy.SystemID
	for i, a := range list {
		if !s.needsScan(a, tick) {
			continue
		}
		sys := galaxy.SystemID(0)
		if home := s.Galaxy.Body(a.Home); home != nil {
			sys = home.System
		}
		if _, ok := bySystem[sys]; !ok {
			systems = append(systems, sys)
		}
		bySystem[sys] = append(bySystem[sys], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.Params.Workers > 0 {
		g.SetLimit(s.Params.Workers)
	}
	for _, sys := range systems {
		idx := bySystem[sys]
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					return err
				}
				c, err := s.bestTarget(list[i], counts)
				intents[i] = miningIntent{scanned: true, target: c, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("mining scan: %w", err)
	}

	for i, a := range list {
		s.commitMining(a, intents[i], counts, tick)
	}
	return nil
}

// needsScan reports whether an agent will look for a contract this tick.
func (s *Simulation) needsScan(a *agents.MiningAgent, tick uint64) bool {
	switch a.State {
	case agents.StateSeekingContract:
		return true
	case agents.StateSleeping:
		return tick >= a.SleepUntil
	}
	return false
}

func (s *Simulation) commitMining(a *agents.MiningAgent, in miningIntent, counts map[agents.Target]int, tick uint64) {
	switch a.State {
	case agents.StateSleeping:
		if tick < a.SleepUntil {
			return
		}
		a.State = agents.StateSeekingContract
		a.SleepUntil = 0
		fallthrough
	case agents.StateSeekingContract:
		if !in.scanned {
			return
		}
		if in.err != nil {
			a.State = agents.StateSleeping
			a.SleepUntil = tick + s.Params.Mining.SleepDays
			return
		}
		s.signContract(a, in.target, tick)
	case agents.StateFulfillingContract:
		if a.Halted || tick < a.BusyUntil {
			return
		}
		s.runTrip(a, counts, tick)
	}
}

func (s *Simulation) signContract(a *agents.MiningAgent, c candidate, tick uint64) {
	body := s.Galaxy.Body(c.target.Body)
	a.State = agents.StateFulfillingContract
	a.Contract = &agents.Contract{
		Target:           c.target,
		TripsRemaining:   s.Params.Mining.TripsPerContract,
		FormedTick:       tick,
		TargetPopulation: body.Population,
	}
	s.Stats.ContractsSigned++
	s.EmitEvent(Event{
		Tick:        tick,
		Category:    "mining",
		Description: fmt.Sprintf("mining ship %d contracts %s at %s", a.ID, c.target.Resource, body.Name),
		Meta:        map[string]any{"agent": a.ID, "score": c.adjusted},
	})
}

// runTrip executes exactly one round trip. A ship away from home first
// finishes its return leg.
func (s *Simulation) runTrip(a *agents.MiningAgent, counts map[agents.Target]int, tick uint64) {
	c := a.Contract
	t := c.Target
	burn := s.Params.Mining.FuelBurn

	if !a.AtHome() {
		if !s.travel(a, a.Home, burn, tick) {
			return
		}
		s.finishTrip(a, counts, tick)
		return
	}

	if !s.travel(a, t.Body, burn, tick) {
		return
	}

	want := s.effectiveCapacity(a)
	got := s.Ledger().Withdraw(t.Body, t.Resource, want)
	a.Cargo = got
	a.CargoResource = t.Resource
	s.Stats.Extracted += got

	if got == 0 {
		slog.Debug("mining target exhausted", "agent", a.ID, "body", t.Body, "resource", t.Resource)
	}

	if !s.travel(a, a.Home, burn, tick) {
		return
	}
	s.finishTrip(a, counts, tick)
}

// travel moves the ship one leg, burning fuel. Without enough fuel the ship
// halts in place and travel returns false.
func (s *Simulation) travel(a *agents.MiningAgent, to galaxy.BodyID, burn float64, tick uint64) bool {
	need := s.Movement.Distance(a.Location, to) * burn
	if a.Fuel < need {
		a.Halted = true
		s.Stats.Halts++
		slog.Info("mining ship halted, out of fuel",
			"agent", a.ID, "at", a.Location, "fuel", a.Fuel, "need", need)
		s.EmitEvent(Event{
			Tick:        tick,
			Category:    "mining",
			Description: fmt.Sprintf("mining ship %d is out of fuel", a.ID),
			Meta:        map[string]any{"agent": a.ID, "body": a.Location},
		})
		return false
	}
	a.Fuel -= need
	s.Movement.MoveTo(a.ID, to)
	a.Location = to
	return true
}

// finishTrip sells the cargo at home at the snapshot price, posts the
// treasury transaction, refuels, and advances the contract.
func (s *Simulation) finishTrip(a *agents.MiningAgent, counts map[agents.Target]int, tick uint64) {
	c := a.Contract
	qty := a.Cargo
	res := a.CargoResource
	if qty > 0 {
		_ = s.Ledger().Deposit(a.Home, res, qty)
	}
	a.Cargo = 0

	days := s.roundTripDays(a.Home, c.Target.Body)
	fuelUsed := a.FuelCapacity - a.Fuel
	fuelCost := fuelUsed * s.Params.Mining.FuelPrice
	revenue := qty * s.Prices.Value(a.Home, res)
	a.Fuel = a.FuelCapacity

	switch a.Owner {
	case agents.OwnerState:
		s.postFleetResult(a.Home, revenue-fuelCost)
	default:
		profit := revenue - fuelCost - s.Params.Mining.UpkeepPerDay*float64(days)
		s.postCorporateTax(a.Home, profit)
	}

	a.BusyUntil = tick + days
	if qty == 0 {
		// Exhausted by a competitor: failed trip, re-evaluate now.
		s.Stats.TripsFailed++
		s.reevaluate(a, counts, tick, "target exhausted")
		return
	}

	c.TripsCompleted++
	c.TripsRemaining--
	s.Stats.TripsCompleted++

	if c.TripsCompleted >= s.Params.Mining.TripsPerContract {
		s.reevaluate(a, counts, tick, "contract complete")
	}
}

// reevaluate scores the current target again against live stock and either
// renews the contract or re-scans the home system in the same commit, with
// prices from the tick's snapshot.
func (s *Simulation) reevaluate(a *agents.MiningAgent, counts map[agents.Target]int, tick uint64, reason string) {
	c := a.Contract
	cand, ok := s.scoreTarget(a, c.Target, competitorsFor(a, c.Target, counts))
	body := s.Galaxy.Body(c.Target.Body)
	if ok && body != nil && !body.Inhabited() && cand.adjusted > s.Params.Mining.Threshold {
		if c.TripsCompleted >= s.Params.Mining.TripsPerContract {
			c.TripsCompleted = 0
			c.TripsRemaining = s.Params.Mining.TripsPerContract
			s.Stats.Renewals++
		}
		return
	}
	slog.Debug("contract ended", "agent", a.ID, "reason", reason, "score", cand.adjusted)

	// Scan before clearing so the old contract does not count against itself.
	next, err := s.bestTarget(a, counts)
	a.Contract = nil
	a.State = agents.StateSeekingContract
	s.commitMining(a, miningIntent{scanned: true, target: next, err: err}, counts, tick)
}

// postCorporateTax taxes positive civilian profit at the home body.
func (s *Simulation) postCorporateTax(home galaxy.BodyID, profit float64) {
	if profit <= 0 {
		return
	}
	tax := treasury.Money(profit * s.Params.Treasury.CorporateTaxRate)
	if err := s.Treasury.Post(treasury.KindCorporateTax, tax, home); err != nil {
		slog.Warn("corporate tax rejected", "body", home, "error", err)
	}
}

// postFleetResult books state-fleet profit in full, or a loss as upkeep.
func (s *Simulation) postFleetResult(home galaxy.BodyID, result float64) {
	kind := treasury.KindStateFleetProfit
	if result < 0 {
		kind = treasury.KindUpkeep
	}
	if err := s.Treasury.Post(kind, treasury.Money(result), home); err != nil {
		slog.Warn("state fleet posting rejected", "body", home, "error", err)
	}
}
