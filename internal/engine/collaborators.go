package engine

import (
	"log/slog"
	"math"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/economy"
	"github.com/talgya/starmarket/internal/galaxy"
)

// Movement supplies distances and travel times and carries out move orders.
// Controllers only issue intents.
type Movement interface {
	Distance(a, b galaxy.BodyID) float64
	TravelTime(a, b galaxy.BodyID) uint64
	MoveTo(agent agents.AgentID, target galaxy.BodyID)
}

// Diplomacy decides whether a sale crosses a customs border.
type Diplomacy interface {
	SameEmpire(a, b galaxy.BodyID) bool
}

// PopulationSource supplies the demographic inputs of the demand model.
type PopulationSource interface {
	Population(body galaxy.BodyID) float64
	InfrastructureModifier(body galaxy.BodyID) float64
}

// Research supplies multiplicative modifiers.
type Research interface {
	ExtractionYield() float64
	LoadingTime() float64
}

// ShortageSink consumes sustained-shortage signals.
type ShortageSink interface {
	Shortage(s economy.Shortage)
}

// galaxyMovement moves ships in straight lines at constant speed.
type galaxyMovement struct {
	g     *galaxy.Galaxy
	speed float64
}

func (m galaxyMovement) Distance(a, b galaxy.BodyID) float64 {
	return m.g.Distance(a, b)
}

func (m galaxyMovement) TravelTime(a, b galaxy.BodyID) uint64 {
	d := m.g.Distance(a, b)
	if d <= 0 || m.speed <= 0 {
		return 0
	}
	return uint64(math.Ceil(d / m.speed))
}

func (galaxyMovement) MoveTo(agents.AgentID, galaxy.BodyID) {}

// galaxyPopulation reads demographics straight off the bodies.
type galaxyPopulation struct {
	g *galaxy.Galaxy
}

func (p galaxyPopulation) Population(body galaxy.BodyID) float64 {
	if b := p.g.Body(body); b != nil {
		return b.Population
	}
	return 0
}

func (p galaxyPopulation) InfrastructureModifier(body galaxy.BodyID) float64 {
	if b := p.g.Body(body); b != nil {
		return economy.InfrastructureModifier(b.Infrastructure)
	}
	return 1
}

// FixedResearch returns constant modifiers.
type FixedResearch struct {
	Yield   float64
	Loading float64
}

func (r FixedResearch) ExtractionYield() float64 { return r.Yield }
func (r FixedResearch) LoadingTime() float64     { return r.Loading }

// logShortages reports shortages to the log.
type logShortages struct{}

func (logShortages) Shortage(s economy.Shortage) {
	slog.Debug("sustained shortage",
		"body", s.Body, "resource", s.Resource, "ticks", s.Ticks,
		"stock", s.Stock, "demand", s.Demand)
}
