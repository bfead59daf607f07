package economy

import (
	"sync"

	"github.com/talgya/starmarket/internal/galaxy"
)

// Market ties the ledger to the demand book and pricing parameters.
type Market struct {
	Ledger  *Ledger
	Pricing PricingParams

	mu     sync.RWMutex
	demand map[galaxy.BodyID]Volumes
}

// NewMarket creates a market over a ledger.
func NewMarket(l *Ledger, p PricingParams) *Market {
	return &Market{Ledger: l, Pricing: p, demand: make(map[galaxy.BodyID]Volumes)}
}

// SetDemand records the monthly demand of a body.
func (m *Market) SetDemand(body galaxy.BodyID, v Volumes) {
	m.mu.Lock()
	m.demand[body] = v
	m.mu.Unlock()
}

// Demand returns the recorded monthly demand of a body.
func (m *Market) Demand(body galaxy.BodyID) Volumes {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.demand[body]
}

// ComputePrice prices a pair against the live ledger and demand book.
func (m *Market) ComputePrice(body galaxy.BodyID, r galaxy.Resource) Price {
	stock := m.Ledger.Stockpile(body, r)
	demand := m.Demand(body)[r]
	base := BaseValue(r)
	p := Price{Body: body, Resource: r, BaseValue: base, Value: base, Ratio: 1}
	if stock <= 0 && demand <= 0 {
		return p
	}
	p.Tradable = true
	p.Ratio, p.Value = m.Pricing.Resolve(base, stock, demand)
	return p
}

// Snapshot prices every (body, resource) pair in the ledger and freezes the
// result for the rest of the tick.
func (m *Market) Snapshot(tick uint64) *PriceSnapshot {
	bodies := m.Ledger.Bodies()
	s := &PriceSnapshot{Tick: tick, prices: make(map[galaxy.BodyID]*[galaxy.NumResources]Price, len(bodies))}
	for _, id := range bodies {
		row := new([galaxy.NumResources]Price)
		for r := 0; r < galaxy.NumResources; r++ {
			row[r] = m.ComputePrice(id, galaxy.Resource(r))
		}
		s.prices[id] = row
	}
	return s
}
