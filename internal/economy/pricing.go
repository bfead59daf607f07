package economy

import (
	"math"
	"sort"

	"github.com/talgya/starmarket/internal/galaxy"
)

// PricingParams are the tunables of the pricing engine.
type PricingParams struct {
	BufferMonths float64 `json:"buffer_months"` // months of demand a healthy stockpile covers
	FloorMult    float64 `json:"floor_mult"`    // price floor as a multiple of base value
	CeilingMult  float64 `json:"ceiling_mult"`  // price ceiling as a multiple of base value
}

// DefaultPricingParams returns the design defaults: three buffer months and a
// 0.25x to 4x band around base value.
func DefaultPricingParams() PricingParams {
	return PricingParams{BufferMonths: 3, FloorMult: 0.25, CeilingMult: 4}
}

// Price is the derived price of one resource at one body.
type Price struct {
	Body      galaxy.BodyID   `json:"body_id"`
	Resource  galaxy.Resource `json:"resource"`
	BaseValue float64         `json:"base_value"`
	Ratio     float64         `json:"-"` // stockpile / buffered demand; +Inf with no demand
	Value     float64         `json:"price"`
	Tradable  bool            `json:"tradable"` // false when there is neither stock nor demand
}

// Resolve returns the supply ratio and clamped price for a stockpile and
// monthly demand. Scarcity raises the price; every zero case is an explicit
// branch.
func (p PricingParams) Resolve(base, stock, demand float64) (ratio, price float64) {
	floor := base * p.FloorMult
	ceiling := base * p.CeilingMult

	buffered := demand * p.BufferMonths
	switch {
	case buffered <= 0:
		return math.Inf(1), floor
	case stock <= 0:
		return 0, ceiling
	}
	ratio = stock / buffered
	return ratio, clamp(base/ratio, floor, ceiling)
}

// PriceSnapshot is an immutable set of prices computed once per tick. Every
// agent within a tick reads the same snapshot.
type PriceSnapshot struct {
	Tick   uint64
	prices map[galaxy.BodyID]*[galaxy.NumResources]Price
}

// Price returns the snapshot price for a pair. ok is false for untradable
// or unknown pairs.
func (s *PriceSnapshot) Price(body galaxy.BodyID, r galaxy.Resource) (Price, bool) {
	if s == nil || int(r) >= galaxy.NumResources {
		return Price{}, false
	}
	row := s.prices[body]
	if row == nil {
		return Price{}, false
	}
	p := row[r]
	return p, p.Tradable
}

// Value returns the snapshot price, or base value for pairs without a price.
func (s *PriceSnapshot) Value(body galaxy.BodyID, r galaxy.Resource) float64 {
	if s != nil && int(r) < galaxy.NumResources {
		if row := s.prices[body]; row != nil {
			return row[r].Value
		}
	}
	return BaseValue(r)
}

// Tradable reports whether a pair had stock or demand when the snapshot was taken.
func (s *PriceSnapshot) Tradable(body galaxy.BodyID, r galaxy.Resource) bool {
	_, ok := s.Price(body, r)
	return ok
}

// All returns every price ordered by body then resource.
func (s *PriceSnapshot) All() []Price {
	if s == nil {
		return nil
	}
	ids := make([]galaxy.BodyID, 0, len(s.prices))
	for id := range s.prices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Price, 0, len(ids)*galaxy.NumResources)
	for _, id := range ids {
		out = append(out, s.prices[id][:]...)
	}
	return out
}
