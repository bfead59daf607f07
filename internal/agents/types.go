// Package agents defines the civilian economic agents: mining ships that work
// multi-trip contracts and freighters that run buy/sell routes.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/starmarket/internal/galaxy"
)

// AgentID is a unique identifier for an agent. Mining ships and freighters
// share one ID space.
type AgentID uint64

// Ownership separates the civilian sector from the state fleet.
type Ownership uint8

const (
	OwnerCivilian Ownership = iota // Profit taxed at the corporate rate
	OwnerState                     // Profit goes 100% to the treasury
)

func (o Ownership) String() string {
	if o == OwnerState {
		return "state"
	}
	return "civilian"
}

// ParseOwnership converts an ownership name back to Ownership.
func ParseOwnership(s string) (Ownership, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "civilian":
		return OwnerCivilian, nil
	case "state":
		return OwnerState, nil
	}
	return 0, fmt.Errorf("unknown ownership %q", s)
}

// MiningState is the lifecycle state of a mining ship. An agent is always in
// exactly one of the three.
type MiningState uint8

const (
	StateSeekingContract    MiningState = iota // Initial state; scans for a target
	StateFulfillingContract                    // Working an active contract
	StateSleeping                              // Nothing profitable; waits out the dwell
)

var miningStateNames = [...]string{"seeking_contract", "fulfilling_contract", "sleeping"}

func (s MiningState) String() string {
	if int(s) < len(miningStateNames) {
		return miningStateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ParseMiningState converts a state name back to a MiningState.
func ParseMiningState(s string) (MiningState, error) {
	for i, name := range miningStateNames {
		if name == s {
			return MiningState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mining state %q", s)
}

// Target is a (body, resource) mining target.
type Target struct {
	Body     galaxy.BodyID   `json:"body_id"`
	Resource galaxy.Resource `json:"resource"`
}

// Contract is a commitment to complete at least a fixed number of round trips
// against one uninhabited target before re-evaluating.
type Contract struct {
	Target           Target  `json:"target"`
	TripsRemaining   int     `json:"trips_remaining"`
	TripsCompleted   int     `json:"trips_completed"`
	FormedTick       uint64  `json:"formed_tick"`
	TargetPopulation float64 `json:"target_population"` // at formation; always zero
}

// MiningAgent is a civilian or state mining ship.
type MiningAgent struct {
	ID    AgentID       `json:"id"`
	Home  galaxy.BodyID `json:"home"`
	Owner Ownership     `json:"owner"`

	State    MiningState `json:"state"`
	Contract *Contract   `json:"contract,omitempty"`

	CargoCapacity float64 `json:"cargo_capacity"`
	Fuel          float64 `json:"fuel"`
	FuelCapacity  float64 `json:"fuel_capacity"`

	Location      galaxy.BodyID   `json:"location"`
	Cargo         float64         `json:"cargo"`
	CargoResource galaxy.Resource `json:"cargo_resource"`

	SleepUntil uint64 `json:"sleep_until,omitempty"`
	BusyUntil  uint64 `json:"busy_until,omitempty"` // in transit until this tick
	Halted     bool   `json:"halted"`               // out of fuel, waiting for resupply

	CreatedTick uint64 `json:"created_tick"`
}

// Validate checks the state machine invariants. tripsPerContract is the
// contract length, normally three.
func (a *MiningAgent) Validate(tripsPerContract int) error {
	switch a.State {
	case StateSeekingContract, StateSleeping:
		if a.Contract != nil {
			return fmt.Errorf("agent %d: %s with an active contract", a.ID, a.State)
		}
	case StateFulfillingContract:
		if a.Contract == nil {
			return fmt.Errorf("agent %d: fulfilling without a contract", a.ID)
		}
		if c := a.Contract; c.TripsCompleted < 0 || c.TripsCompleted >= tripsPerContract {
			return fmt.Errorf("agent %d: trips completed %d outside [0,%d)", a.ID, c.TripsCompleted, tripsPerContract)
		}
	default:
		return fmt.Errorf("agent %d: invalid state %d", a.ID, a.State)
	}
	if a.Cargo < 0 || a.Fuel < 0 {
		return fmt.Errorf("agent %d: negative cargo or fuel", a.ID)
	}
	return nil
}

// AtHome reports whether the ship is docked at its home body.
func (a *MiningAgent) AtHome() bool {
	return a.Location == a.Home
}

// Cargo is a freighter load bought at PurchasePrice per unit.
type Cargo struct {
	Resource      galaxy.Resource `json:"resource"`
	Quantity      float64         `json:"quantity"`
	PurchasePrice float64         `json:"purchase_price"`
}

// Route is a freighter's committed trip.
type Route struct {
	Origin      galaxy.BodyID `json:"origin"`
	Destination galaxy.BodyID `json:"destination"`
	DepartTick  uint64        `json:"depart_tick"`
	ArrivalTick uint64        `json:"arrival_tick"`
	FuelCost    float64       `json:"fuel_cost"`
}

// TradeAgent is a freighter.
type TradeAgent struct {
	ID    AgentID       `json:"id"`
	Home  galaxy.BodyID `json:"home"`
	Owner Ownership     `json:"owner"`

	CargoCapacity float64       `json:"cargo_capacity"`
	Location      galaxy.BodyID `json:"location"`
	Cargo         *Cargo        `json:"cargo,omitempty"`
	Route         *Route        `json:"route,omitempty"`

	CreatedTick uint64 `json:"created_tick"`
}

// Idle reports whether the freighter has no route.
func (t *TradeAgent) Idle() bool {
	return t.Route == nil
}
