package engine

import (
	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/economy"
)

// MiningParams tune the mining controller.
type MiningParams struct {
	Threshold        float64 // minimum adjusted score to sign a contract
	TripsPerContract int     // round trips before re-evaluating
	CargoCapacity    float64
	FuelCapacity     float64
	FuelBurn         float64 // fuel per unit distance
	FuelPrice        float64 // credits per fuel unit
	UpkeepPerDay     float64 // amortized into the score
	LoadingDays      float64 // time at the target per trip, before research modifiers
	SleepDays        uint64  // dwell when nothing is profitable
}

// TradeParams tune the trade controller.
type TradeParams struct {
	Threshold     float64 // minimum route profit
	CargoCapacity float64
	Range         float64 // maximum leg distance; 0 means unlimited
	FuelBurn      float64
	FuelPrice     float64
}

// PlannerParams tune the civilian production planner.
type PlannerParams struct {
	MiningShipCost               float64
	FreighterCost                float64
	CommissionThreshold          float64 // best unclaimed mining score needed to build a miner
	FreighterCommissionThreshold float64 // best route profit needed to build a freighter
	MaxAgentsPerBody             int
	RequireShipyard              bool
}

// TreasuryParams tune taxation and scheduled expenses.
type TreasuryParams struct {
	CorporateTaxRate float64
	TariffRate       float64
	StateFleetUpkeep float64 // per active state ship per day
	MonthlySubsidy   float64 // per populated body
	StartingFunds    float64 // opening balance of populated bodies
}

// Params hold every tunable of the simulation.
type Params struct {
	TicksPerMonth int     // one tick is one day
	Workers       int     // parallel star systems during agent evaluation
	ShipSpeed     float64 // distance per day for the default movement model

	Pricing            economy.PricingParams
	DemandRates        economy.DemandRates
	ShortageTicks      int
	ConsumptionEnabled bool
	RegenRate          float64 // units per day per yield grade on uninhabited bodies
	DepositCap         float64 // regeneration stops at DepositCap × grade
	PopulationGrowth   float64 // annual growth rate applied monthly

	ExtractionYield float64 // research modifier on effective cargo per trip
	LoadingTime     float64 // research modifier on loading days

	Mining   MiningParams
	Trade    TradeParams
	Planner  PlannerParams
	Treasury TreasuryParams
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		TicksPerMonth: 30,
		Workers:       4,
		ShipSpeed:     20,

		Pricing:            economy.DefaultPricingParams(),
		DemandRates:        economy.DefaultDemandRates(),
		ShortageTicks:      30,
		ConsumptionEnabled: true,
		RegenRate:          4,
		DepositCap:         2000,
		PopulationGrowth:   0.015,

		ExtractionYield: 1,
		LoadingTime:     1,

		Mining: MiningParams{
			Threshold:        500,
			TripsPerContract: 3,
			CargoCapacity:    200,
			FuelCapacity:     400,
			FuelBurn:         1,
			FuelPrice:        1,
			UpkeepPerDay:     5,
			LoadingDays:      1,
			SleepDays:        90,
		},
		Trade: TradeParams{
			Threshold:     300,
			CargoCapacity: 500,
			Range:         250,
			FuelBurn:      1,
			FuelPrice:     1,
		},
		Planner: PlannerParams{
			MiningShipCost:               5000,
			FreighterCost:                8000,
			CommissionThreshold:          2000,
			FreighterCommissionThreshold: 2000,
			MaxAgentsPerBody:             64,
			RequireShipyard:              true,
		},
		Treasury: TreasuryParams{
			CorporateTaxRate: 0.2,
			TariffRate:       0.1,
			StateFleetUpkeep: 10,
			MonthlySubsidy:   100,
			StartingFunds:    20000,
		},
	}
}

func (p Params) miningSpec() agents.ShipSpec {
	return agents.ShipSpec{CargoCapacity: p.Mining.CargoCapacity, FuelCapacity: p.Mining.FuelCapacity}
}

func (p Params) freighterSpec() agents.ShipSpec {
	return agents.ShipSpec{CargoCapacity: p.Trade.CargoCapacity}
}
