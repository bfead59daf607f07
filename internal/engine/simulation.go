// Simulation ties together the economy subsystems and runs them each tick.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/economy"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

// ErrNoViableTarget is reported when a scan finds nothing profitable. It
// drives the sleeping and idle transitions and is never fatal.
var ErrNoViableTarget = errors.New("no viable target")

// maxEvents bounds the recent event buffer.
const maxEvents = 1000

// Simulation holds the complete economy state and wires systems together.
type Simulation struct {
	mu sync.RWMutex

	Params   Params
	Seed     int64
	LastTick uint64 // Most recent tick processed

	Galaxy    *galaxy.Galaxy
	Market    *economy.Market
	Agents    *agents.Directory
	Spawner   *agents.Spawner
	Treasury  *treasury.Ledger
	Shortages *economy.ShortageTracker
	Prices    *economy.PriceSnapshot // frozen at step 2 of the last tick

	// External collaborators. Defaults are backed by the galaxy.
	Movement     Movement
	Diplomacy    Diplomacy
	Population   PopulationSource
	Research     Research
	ShortageSink ShortageSink

	Events []Event // Recent events, trimmed to maxEvents
	Stats  SimStats

	cmdMu    sync.Mutex
	commands []Command
}

// Event is a notable occurrence in the economy.
type Event struct {
	Tick        uint64         `json:"tick"`
	Description string         `json:"description"`
	Category    string         `json:"category"` // "mining", "trade", "planner", "treasury", "command"
	Meta        map[string]any `json:"meta,omitempty"`
}

// SimStats tracks activity for the current month.
type SimStats struct {
	TripsCompleted  int     `json:"trips_completed"`
	TripsFailed     int     `json:"trips_failed"`
	Halts           int     `json:"halts"`
	ContractsSigned int     `json:"contracts_signed"`
	Renewals        int     `json:"renewals"`
	TradesStarted   int     `json:"trades_started"`
	TradesDone      int     `json:"trades_completed"`
	Commissioned    int     `json:"commissioned"`
	Shortages       int     `json:"shortages"`
	Extracted       float64 `json:"extracted"`
	Consumed        float64 `json:"consumed"`
	Regenerated     float64 `json:"regenerated"`
	CargoLost       float64 `json:"cargo_lost"`
}

// New creates a Simulation over a galaxy and its initial deposits.
// Populated bodies open a treasury account with the starting funds.
func New(g *galaxy.Galaxy, deposits []galaxy.Deposit, p Params) (*Simulation, error) {
	if g == nil {
		return nil, fmt.Errorf("nil galaxy")
	}
	if p.TicksPerMonth <= 0 {
		return nil, fmt.Errorf("ticks per month must be positive, got %d", p.TicksPerMonth)
	}
	if p.Mining.TripsPerContract <= 0 {
		return nil, fmt.Errorf("trips per contract must be positive, got %d", p.Mining.TripsPerContract)
	}

	ids := make([]galaxy.BodyID, 0, len(g.Bodies))
	for _, b := range g.Bodies {
		ids = append(ids, b.ID)
	}
	ledger := economy.NewLedger(ids...)
	for _, d := range deposits {
		if _, err := ledger.Adjust(d.Body, d.Resource, d.Quantity); err != nil {
			return nil, fmt.Errorf("seed deposit: %w", err)
		}
	}

	s := &Simulation{
		Params:       p,
		Galaxy:       g,
		Market:       economy.NewMarket(ledger, p.Pricing),
		Agents:       agents.NewDirectory(),
		Spawner:      agents.NewSpawner(),
		Treasury:     treasury.New(),
		Shortages:    economy.NewShortageTracker(p.ShortageTicks),
		Movement:     galaxyMovement{g: g, speed: p.ShipSpeed},
		Diplomacy:    g,
		Population:   galaxyPopulation{g: g},
		Research:     FixedResearch{Yield: p.ExtractionYield, Loading: p.LoadingTime},
		ShortageSink: logShortages{},
	}
	for _, b := range g.Bodies {
		if b.Inhabited() {
			s.Treasury.Open(b.ID, treasury.Money(p.Treasury.StartingFunds))
		}
	}
	s.Reprice()
	return s, nil
}

// Ledger returns the resource ledger.
func (s *Simulation) Ledger() *economy.Ledger {
	return s.Market.Ledger
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// View runs fn with the simulation read-locked. Use it to observe state
// from outside the tick goroutine.
func (s *Simulation) View(fn func(*Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s)
}

// Update runs fn with the simulation write-locked.
func (s *Simulation) Update(fn func(*Simulation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Reprice refreshes demand and freezes a new price snapshot without
// consuming, regenerating or moving anything. Used after setup and load.
func (s *Simulation) Reprice() {
	s.refreshDemand()
	s.Prices = s.Market.Snapshot(s.LastTick)
}

// EmitEvent records an event, trimming the buffer to maxEvents.
func (s *Simulation) EmitEvent(e Event) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// isMonthBoundary reports whether tick closes a month.
func (s *Simulation) isMonthBoundary(tick uint64) bool {
	return tick%uint64(s.Params.TicksPerMonth) == 0
}
