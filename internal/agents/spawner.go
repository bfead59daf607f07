package agents

import (
	"sync"

	"github.com/talgya/starmarket/internal/galaxy"
)

// ShipSpec is the hull specification of newly commissioned ships.
type ShipSpec struct {
	CargoCapacity float64
	FuelCapacity  float64
}

// Spawner issues agent IDs and builds new ships in their initial state.
type Spawner struct {
	mu     sync.Mutex
	nextID AgentID
}

// NewSpawner creates a spawner whose first ID is 1.
func NewSpawner() *Spawner {
	return &Spawner{nextID: 1}
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.mu.Lock()
	s.nextID = id
	s.mu.Unlock()
}

// NextID returns the ID the next spawn will receive.
func (s *Spawner) NextID() AgentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

func (s *Spawner) issue() AgentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// Observe bumps the counter past an ID created elsewhere, e.g. by a scenario.
func (s *Spawner) Observe(id AgentID) {
	s.mu.Lock()
	if id >= s.nextID {
		s.nextID = id + 1
	}
	s.mu.Unlock()
}

// SpawnMining creates a fueled mining ship docked at home, seeking a contract.
func (s *Spawner) SpawnMining(home galaxy.BodyID, owner Ownership, spec ShipSpec, tick uint64) *MiningAgent {
	return &MiningAgent{
		ID:            s.issue(),
		Home:          home,
		Owner:         owner,
		State:         StateSeekingContract,
		CargoCapacity: spec.CargoCapacity,
		Fuel:          spec.FuelCapacity,
		FuelCapacity:  spec.FuelCapacity,
		Location:      home,
		CreatedTick:   tick,
	}
}

// SpawnTrade creates an idle freighter docked at home.
func (s *Spawner) SpawnTrade(home galaxy.BodyID, owner Ownership, spec ShipSpec, tick uint64) *TradeAgent {
	return &TradeAgent{
		ID:            s.issue(),
		Home:          home,
		Owner:         owner,
		CargoCapacity: spec.CargoCapacity,
		Location:      home,
		CreatedTick:   tick,
	}
}
