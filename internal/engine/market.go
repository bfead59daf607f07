// Trade agent controller: freighters buy where a resource is cheap and sell
// where it is dear.
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

// routePlan is one scored trade route.
type routePlan struct {
	origin      galaxy.BodyID
	destination galaxy.BodyID
	resource    galaxy.Resource
	quantity    float64
	buyPrice    float64
	sellPrice   float64
	fuelCost    float64
	tariff      float64
	profit      float64
	distance    float64 // deadhead to origin plus the loaded leg
}

func (r routePlan) better(o routePlan) bool {
	if r.profit != o.profit {
		return r.profit > o.profit
	}
	if r.distance != o.distance {
		return r.distance < o.distance
	}
	if r.resource != o.resource {
		return r.resource < o.resource
	}
	if r.origin != o.origin {
		return r.origin < o.origin
	}
	return r.destination < o.destination
}

// inRange reports whether a leg is within freighter range.
func (s *Simulation) inRange(d float64) bool {
	return s.Params.Trade.Range <= 0 || d <= s.Params.Trade.Range
}

// bestRoute scans origin and destination pairs reachable from a location.
// Prices come from the snapshot and quantities from live stock.
func (s *Simulation) bestRoute(from galaxy.BodyID, capacity float64) (routePlan, error) {
	var best routePlan
	found := false
	ledger := s.Ledger()

	for _, origin := range s.Galaxy.Bodies {
		deadhead := s.Movement.Distance(from, origin.ID)
		if !s.inRange(deadhead) {
			continue
		}
		for _, dest := range s.Galaxy.Bodies {
			if dest.ID == origin.ID {
				continue
			}
			leg := s.Movement.Distance(origin.ID, dest.ID)
			if !s.inRange(leg) {
				continue
			}
			crossBorder := !s.Diplomacy.SameEmpire(origin.ID, dest.ID)

			for r := 0; r < galaxy.NumResources; r++ {
				res := galaxy.Resource(r)
				buy, okBuy := s.Prices.Price(origin.ID, res)
				sell, okSell := s.Prices.Price(dest.ID, res)
				if !okBuy || !okSell || sell.Value <= buy.Value {
					continue
				}
				qty := math.Min(capacity, ledger.Stockpile(origin.ID, res))
				if qty <= 0 {
					continue
				}
				plan := routePlan{
					origin:      origin.ID,
					destination: dest.ID,
					resource:    res,
					quantity:    qty,
					buyPrice:    buy.Value,
					sellPrice:   sell.Value,
					fuelCost:    (deadhead + leg) * s.Params.Trade.FuelBurn * s.Params.Trade.FuelPrice,
					distance:    deadhead + leg,
				}
				if crossBorder {
					plan.tariff = plan.sellPrice * qty * s.Params.Treasury.TariffRate
				}
				plan.profit = (plan.sellPrice-plan.buyPrice)*qty - plan.fuelCost - plan.tariff
				if plan.profit <= s.Params.Trade.Threshold {
					continue
				}
				if !found || plan.better(best) {
					best, found = plan, true
				}
			}
		}
	}
	if !found {
		return routePlan{}, ErrNoViableTarget
	}
	return best, nil
}

type tradeIntent struct {
	scanned bool
	plan    routePlan
	err     error
}

// stepTrade runs step 4: arrivals sell, idle freighters scan and buy. The
// scan runs in parallel per star system; commits run in agent ID order.
func (s *Simulation) stepTrade(ctx context.Context, tick uint64) error {
	list := s.Agents.TradeAgents()
	intents := make([]tradeIntent, len(list))

	bySystem := make(map[galaxy.SystemID][]int)
	var systems []galaxy.SystemID
	for i, f := range list {
		if !f.Idle() {
			continue
		}
		sys := galaxy.SystemID(0)
		if b := s.Galaxy.Body(f.Location); b != nil {
			sys = b.System
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
				plan, err := s.bestRoute(list[i].Location, list[i].CargoCapacity)
				intents[i] = tradeIntent{scanned: true, plan: plan, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("trade scan: %w", err)
	}

	for i, f := range list {
		switch {
		case f.Route != nil:
			if tick >= f.Route.ArrivalTick {
				s.completeRoute(f, tick)
			}
		case intents[i].scanned && intents[i].err == nil:
			s.startRoute(f, intents[i].plan, tick)
		}
	}
	return nil
}

// startRoute buys at the origin, clamped to on-hand stock and capacity.
// The cargo leaves the origin ledger here and only reappears at the sale.
func (s *Simulation) startRoute(f *agents.TradeAgent, p routePlan, tick uint64) {
	want := math.Min(p.quantity, f.CargoCapacity)
	got := s.Ledger().Withdraw(p.origin, p.resource, want)
	if got <= 0 {
		return
	}
	if got < want {
		slog.Debug("freighter purchase clamped", "agent", f.ID, "wanted", want, "bought", got)
	}

	travel := s.Movement.TravelTime(f.Location, p.origin) + s.Movement.TravelTime(p.origin, p.destination)
	if travel == 0 {
		travel = 1
	}
	f.Cargo = &agents.Cargo{Resource: p.resource, Quantity: got, PurchasePrice: p.buyPrice}
	f.Route = &agents.Route{
		Origin:      p.origin,
		Destination: p.destination,
		DepartTick:  tick,
		ArrivalTick: tick + travel,
		FuelCost:    p.fuelCost,
	}
	f.Location = p.origin
	s.Movement.MoveTo(f.ID, p.destination)
	s.Stats.TradesStarted++
}

// completeRoute sells at the destination at the current snapshot price and
// posts tariff and tax.
func (s *Simulation) completeRoute(f *agents.TradeAgent, tick uint64) {
	r, c := f.Route, f.Cargo
	f.Location = r.Destination
	f.Route = nil
	f.Cargo = nil
	if c == nil || c.Quantity <= 0 {
		return
	}

	if err := s.Ledger().Deposit(r.Destination, c.Resource, c.Quantity); err != nil {
		slog.Warn("freighter sale failed", "agent", f.ID, "error", err)
		return
	}
	revenue := c.Quantity * s.Prices.Value(r.Destination, c.Resource)
	profit := revenue - c.Quantity*c.PurchasePrice - r.FuelCost

	if !s.Diplomacy.SameEmpire(r.Origin, r.Destination) {
		tariff := revenue * s.Params.Treasury.TariffRate
		if err := s.Treasury.Post(treasury.KindTariff, treasury.Money(tariff), r.Destination); err != nil {
			slog.Warn("tariff rejected", "body", r.Destination, "error", err)
		}
		profit -= tariff
	}

	switch f.Owner {
	case agents.OwnerState:
		s.postFleetResult(f.Home, profit)
	default:
		s.postCorporateTax(f.Home, profit)
	}

	s.Stats.TradesDone++
	desc := fmt.Sprintf("freighter %d delivers %.0f %s to body %d", f.ID, c.Quantity, c.Resource, r.Destination)
	s.EmitEvent(Event{
		Tick:        tick,
		Category:    "trade",
		Description: desc,
		Meta:        map[string]any{"agent": f.ID, "profit": profit},
	})
}
