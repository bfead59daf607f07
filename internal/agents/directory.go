package agents

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/talgya/starmarket/internal/galaxy"
)

var (
	// ErrAgentNotFound is returned for references to agents that no longer
	// exist, e.g. a stale event after destruction.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrDuplicateAgent is returned when an ID is registered twice.
	ErrDuplicateAgent = errors.New("duplicate agent")
)

// Directory is the registry of every economic agent.
type Directory struct {
	mu     sync.RWMutex
	mining map[AgentID]*MiningAgent
	trade  map[AgentID]*TradeAgent
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		mining: make(map[AgentID]*MiningAgent),
		trade:  make(map[AgentID]*TradeAgent),
	}
}

func (d *Directory) exists(id AgentID) bool {
	_, m := d.mining[id]
	_, t := d.trade[id]
	return m || t
}

// AddMining registers a mining ship.
func (d *Directory) AddMining(a *MiningAgent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exists(a.ID) {
		return fmt.Errorf("add mining agent %d: %w", a.ID, ErrDuplicateAgent)
	}
	d.mining[a.ID] = a
	return nil
}

// AddTrade registers a freighter.
func (d *Directory) AddTrade(t *TradeAgent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exists(t.ID) {
		return fmt.Errorf("add trade agent %d: %w", t.ID, ErrDuplicateAgent)
	}
	d.trade[t.ID] = t
	return nil
}

// Mining looks up a mining ship.
func (d *Directory) Mining(id AgentID) (*MiningAgent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.mining[id]
	if !ok {
		return nil, fmt.Errorf("mining agent %d: %w", id, ErrAgentNotFound)
	}
	return a, nil
}

// Trade looks up a freighter.
func (d *Directory) Trade(id AgentID) (*TradeAgent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.trade[id]
	if !ok {
		return nil, fmt.Errorf("trade agent %d: %w", id, ErrAgentNotFound)
	}
	return t, nil
}

// Remove destroys an agent of either kind.
func (d *Directory) Remove(id AgentID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.mining[id]; ok {
		delete(d.mining, id)
		return nil
	}
	if _, ok := d.trade[id]; ok {
		delete(d.trade, id)
		return nil
	}
	return fmt.Errorf("remove agent %d: %w", id, ErrAgentNotFound)
}

// MiningAgents returns every mining ship in ID order.
func (d *Directory) MiningAgents() []*MiningAgent {
	d.mu.RLock()
	out := make([]*MiningAgent, 0, len(d.mining))
	for _, a := range d.mining {
		out = append(out, a)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TradeAgents returns every freighter in ID order.
func (d *Directory) TradeAgents() []*TradeAgent {
	d.mu.RLock()
	out := make([]*TradeAgent, 0, len(d.trade))
	for _, t := range d.trade {
		out = append(out, t)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TargetCounts counts the mining ships holding a contract on each target.
func (d *Directory) TargetCounts() map[Target]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	counts := make(map[Target]int)
	for _, a := range d.mining {
		if a.State == StateFulfillingContract && a.Contract != nil {
			counts[a.Contract.Target]++
		}
	}
	return counts
}

// CountHome returns the number of agents of either kind based at a body.
func (d *Directory) CountHome(body galaxy.BodyID) (mining, trade int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.mining {
		if a.Home == body {
			mining++
		}
	}
	for _, t := range d.trade {
		if t.Home == body {
			trade++
		}
	}
	return mining, trade
}

// Len returns the total number of agents.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.mining) + len(d.trade)
}

// CargoInTransit returns the quantity of a resource held by freighters.
func (d *Directory) CargoInTransit(r galaxy.Resource) float64 {
	var sum float64
	for _, t := range d.TradeAgents() {
		if t.Cargo != nil && t.Cargo.Resource == r {
			sum += t.Cargo.Quantity
		}
	}
	return sum
}
