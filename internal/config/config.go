// Package config loads the simulation configuration from defaults, an
// optional YAML file and STARMARKET_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/talgya/starmarket/internal/economy"
	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/galaxy"
)

// EnvPrefix prefixes every environment override, e.g. STARMARKET_MINING_THRESHOLD.
const EnvPrefix = "STARMARKET"

// Config is the complete application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Economy    EconomyConfig    `mapstructure:"economy"    yaml:"economy"`
	Mining     MiningConfig     `mapstructure:"mining"     yaml:"mining"`
	Trade      TradeConfig      `mapstructure:"trade"      yaml:"trade"`
	Planner    PlannerConfig    `mapstructure:"planner"    yaml:"planner"`
	Treasury   TreasuryConfig   `mapstructure:"treasury"   yaml:"treasury"`
	Research   ResearchConfig   `mapstructure:"research"   yaml:"research"`
	Galaxy     GalaxyConfig     `mapstructure:"galaxy"     yaml:"galaxy"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	Seed          int64         `mapstructure:"seed"            yaml:"seed"` // 0 = random
	TicksPerMonth int           `mapstructure:"ticks_per_month" yaml:"ticks_per_month"`
	Workers       int           `mapstructure:"workers"         yaml:"workers"`
	ShipSpeed     float64       `mapstructure:"ship_speed"      yaml:"ship_speed"`
	DBDriver      string        `mapstructure:"db_driver"       yaml:"db_driver"` // "sqlite" or "postgres"
	DBDSN         string        `mapstructure:"db_dsn"          yaml:"db_dsn"`
	AutosaveDays  int           `mapstructure:"autosave_days"   yaml:"autosave_days"`
	TickInterval  time.Duration `mapstructure:"tick_interval"   yaml:"tick_interval"`
	Scenario      string        `mapstructure:"scenario"        yaml:"scenario"` // YAML scenario; empty = procedural galaxy
}

// EconomyConfig holds pricing and population settings.
type EconomyConfig struct {
	BufferMonths       float64 `mapstructure:"buffer_months"       yaml:"buffer_months"`
	PriceFloor         float64 `mapstructure:"price_floor"         yaml:"price_floor"`
	PriceCeiling       float64 `mapstructure:"price_ceiling"       yaml:"price_ceiling"`
	ShortageTicks      int     `mapstructure:"shortage_ticks"      yaml:"shortage_ticks"`
	ConsumptionEnabled bool    `mapstructure:"consumption_enabled" yaml:"consumption_enabled"`
	RegenRate          float64 `mapstructure:"regen_rate"          yaml:"regen_rate"`
	DepositCap         float64 `mapstructure:"deposit_cap"         yaml:"deposit_cap"`
	PopulationGrowth   float64 `mapstructure:"population_growth"   yaml:"population_growth"`
}

// MiningConfig tunes the mining controller.
type MiningConfig struct {
	Threshold        float64 `mapstructure:"threshold"          yaml:"threshold"`
	TripsPerContract int     `mapstructure:"trips_per_contract" yaml:"trips_per_contract"`
	CargoCapacity    float64 `mapstructure:"cargo_capacity"     yaml:"cargo_capacity"`
	FuelCapacity     float64 `mapstructure:"fuel_capacity"      yaml:"fuel_capacity"`
	FuelBurn         float64 `mapstructure:"fuel_burn"          yaml:"fuel_burn"`
	FuelPrice        float64 `mapstructure:"fuel_price"         yaml:"fuel_price"`
	UpkeepPerDay     float64 `mapstructure:"upkeep_per_day"     yaml:"upkeep_per_day"`
	LoadingDays      float64 `mapstructure:"loading_days"       yaml:"loading_days"`
	SleepDays        uint64  `mapstructure:"sleep_days"         yaml:"sleep_days"`
}

// TradeConfig tunes the trade controller.
type TradeConfig struct {
	Threshold     float64 `mapstructure:"threshold"      yaml:"threshold"`
	CargoCapacity float64 `mapstructure:"cargo_capacity" yaml:"cargo_capacity"`
	Range         float64 `mapstructure:"range"          yaml:"range"`
	FuelBurn      float64 `mapstructure:"fuel_burn"      yaml:"fuel_burn"`
	FuelPrice     float64 `mapstructure:"fuel_price"     yaml:"fuel_price"`
}

// PlannerConfig tunes ship commissioning.
type PlannerConfig struct {
	MiningShipCost               float64 `mapstructure:"mining_ship_cost"               yaml:"mining_ship_cost"`
	FreighterCost                float64 `mapstructure:"freighter_cost"                 yaml:"freighter_cost"`
	CommissionThreshold          float64 `mapstructure:"commission_threshold"           yaml:"commission_threshold"`
	FreighterCommissionThreshold float64 `mapstructure:"freighter_commission_threshold" yaml:"freighter_commission_threshold"`
	MaxAgentsPerBody             int     `mapstructure:"max_agents_per_body"            yaml:"max_agents_per_body"`
	RequireShipyard              bool    `mapstructure:"require_shipyard"               yaml:"require_shipyard"`
}

// TreasuryConfig tunes taxation and scheduled expenses.
type TreasuryConfig struct {
	CorporateTaxRate float64 `mapstructure:"corporate_tax_rate" yaml:"corporate_tax_rate"`
	TariffRate       float64 `mapstructure:"tariff_rate"        yaml:"tariff_rate"`
	StateFleetUpkeep float64 `mapstructure:"state_fleet_upkeep" yaml:"state_fleet_upkeep"`
	MonthlySubsidy   float64 `mapstructure:"monthly_subsidy"    yaml:"monthly_subsidy"`
	StartingFunds    float64 `mapstructure:"starting_funds"     yaml:"starting_funds"`
}

// ResearchConfig holds the fixed research modifiers.
type ResearchConfig struct {
	ExtractionYield float64 `mapstructure:"extraction_yield" yaml:"extraction_yield"`
	LoadingTime     float64 `mapstructure:"loading_time"     yaml:"loading_time"`
}

// GalaxyConfig shapes procedural generation.
type GalaxyConfig struct {
	Systems            int     `mapstructure:"systems"               yaml:"systems"`
	MaxBodiesPerSystem int     `mapstructure:"max_bodies_per_system" yaml:"max_bodies_per_system"`
	ResourcesPerBody   int     `mapstructure:"resources_per_body"    yaml:"resources_per_body"`
	Radius             float64 `mapstructure:"radius"                yaml:"radius"`
	Empires            int     `mapstructure:"empires"               yaml:"empires"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port          int      `mapstructure:"port"            yaml:"port"` // 0 disables the API
	CORSOrigins   []string `mapstructure:"cors_origins"    yaml:"cors_origins"`
	RatePerSecond float64  `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int      `mapstructure:"burst"           yaml:"burst"`
	AdminKey      string   `mapstructure:"admin_key"       yaml:"admin_key"` // empty disables POST endpoints
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "auto", "text" or "json"
}

// Load reads defaults, then the file at path when non-empty, then the
// environment. A missing file is an error; an empty path is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults mirrors engine.DefaultParams and galaxy.DefaultGenConfig so
// that every key is visible to AutomaticEnv.
func setDefaults(v *viper.Viper) {
	p := engine.DefaultParams()
	g := galaxy.DefaultGenConfig()

	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.ticks_per_month", p.TicksPerMonth)
	v.SetDefault("simulation.workers", p.Workers)
	v.SetDefault("simulation.ship_speed", p.ShipSpeed)
	v.SetDefault("simulation.db_driver", "sqlite")
	v.SetDefault("simulation.db_dsn", "starmarket.db")
	v.SetDefault("simulation.autosave_days", 30)
	v.SetDefault("simulation.tick_interval", "1s")
	v.SetDefault("simulation.scenario", "")

	v.SetDefault("economy.buffer_months", p.Pricing.BufferMonths)
	v.SetDefault("economy.price_floor", p.Pricing.FloorMult)
	v.SetDefault("economy.price_ceiling", p.Pricing.CeilingMult)
	v.SetDefault("economy.shortage_ticks", p.ShortageTicks)
	v.SetDefault("economy.consumption_enabled", p.ConsumptionEnabled)
	v.SetDefault("economy.regen_rate", p.RegenRate)
	v.SetDefault("economy.deposit_cap", p.DepositCap)
	v.SetDefault("economy.population_growth", p.PopulationGrowth)

	v.SetDefault("mining.threshold", p.Mining.Threshold)
	v.SetDefault("mining.trips_per_contract", p.Mining.TripsPerContract)
	v.SetDefault("mining.cargo_capacity", p.Mining.CargoCapacity)
	v.SetDefault("mining.fuel_capacity", p.Mining.FuelCapacity)
	v.SetDefault("mining.fuel_burn", p.Mining.FuelBurn)
	v.SetDefault("mining.fuel_price", p.Mining.FuelPrice)
	v.SetDefault("mining.upkeep_per_day", p.Mining.UpkeepPerDay)
	v.SetDefault("mining.loading_days", p.Mining.LoadingDays)
	v.SetDefault("mining.sleep_days", p.Mining.SleepDays)

	v.SetDefault("trade.threshold", p.Trade.Threshold)
	v.SetDefault("trade.cargo_capacity", p.Trade.CargoCapacity)
	v.SetDefault("trade.range", p.Trade.Range)
	v.SetDefault("trade.fuel_burn", p.Trade.FuelBurn)
	v.SetDefault("trade.fuel_price", p.Trade.FuelPrice)

	v.SetDefault("planner.mining_ship_cost", p.Planner.MiningShipCost)
	v.SetDefault("planner.freighter_cost", p.Planner.FreighterCost)
	v.SetDefault("planner.commission_threshold", p.Planner.CommissionThreshold)
	v.SetDefault("planner.freighter_commission_threshold", p.Planner.FreighterCommissionThreshold)
	v.SetDefault("planner.max_agents_per_body", p.Planner.MaxAgentsPerBody)
	v.SetDefault("planner.require_shipyard", p.Planner.RequireShipyard)

	v.SetDefault("treasury.corporate_tax_rate", p.Treasury.CorporateTaxRate)
	v.SetDefault("treasury.tariff_rate", p.Treasury.TariffRate)
	v.SetDefault("treasury.state_fleet_upkeep", p.Treasury.StateFleetUpkeep)
	v.SetDefault("treasury.monthly_subsidy", p.Treasury.MonthlySubsidy)
	v.SetDefault("treasury.starting_funds", p.Treasury.StartingFunds)

	v.SetDefault("research.extraction_yield", p.ExtractionYield)
	v.SetDefault("research.loading_time", p.LoadingTime)

	v.SetDefault("galaxy.systems", g.Systems)
	v.SetDefault("galaxy.max_bodies_per_system", g.MaxBodiesPerSystem)
	v.SetDefault("galaxy.resources_per_body", g.ResourcesPerBody)
	v.SetDefault("galaxy.radius", g.Radius)
	v.SetDefault("galaxy.empires", g.Empires)

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.rate_per_second", 5.0)
	v.SetDefault("api.burst", 20)
	v.SetDefault("api.admin_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	rate := func(name string, r float64) {
		check(r >= 0 && r <= 1, "%s must be within [0,1], got %g", name, r)
	}

	check(c.Simulation.TicksPerMonth > 0, "simulation.ticks_per_month must be positive")
	check(c.Simulation.Workers > 0, "simulation.workers must be positive")
	check(c.Simulation.ShipSpeed > 0, "simulation.ship_speed must be positive")
	check(c.Simulation.DBDriver == "sqlite" || c.Simulation.DBDriver == "postgres",
		"simulation.db_driver must be sqlite or postgres, got %q", c.Simulation.DBDriver)
	check(c.Simulation.AutosaveDays >= 0, "simulation.autosave_days must not be negative")

	check(c.Economy.BufferMonths > 0, "economy.buffer_months must be positive, got %g", c.Economy.BufferMonths)
	check(c.Economy.PriceFloor > 0, "economy.price_floor must be positive")
	check(c.Economy.PriceFloor < c.Economy.PriceCeiling,
		"economy.price_floor (%g) must be below economy.price_ceiling (%g)", c.Economy.PriceFloor, c.Economy.PriceCeiling)
	check(c.Economy.ShortageTicks > 0, "economy.shortage_ticks must be positive")
	check(c.Economy.RegenRate >= 0, "economy.regen_rate must not be negative")

	check(c.Mining.TripsPerContract > 0, "mining.trips_per_contract must be positive")
	check(c.Mining.CargoCapacity > 0, "mining.cargo_capacity must be positive")
	check(c.Trade.CargoCapacity > 0, "trade.cargo_capacity must be positive")
	check(c.Planner.MaxAgentsPerBody > 0, "planner.max_agents_per_body must be positive")

	rate("treasury.corporate_tax_rate", c.Treasury.CorporateTaxRate)
	rate("treasury.tariff_rate", c.Treasury.TariffRate)
	rate("economy.population_growth", c.Economy.PopulationGrowth)

	check(c.Research.ExtractionYield > 0, "research.extraction_yield must be positive")
	check(c.Research.LoadingTime > 0, "research.loading_time must be positive")

	check(c.Galaxy.Systems > 0, "galaxy.systems must be positive")
	check(c.Galaxy.ResourcesPerBody > 0 && c.Galaxy.ResourcesPerBody <= int(galaxy.NumResources),
		"galaxy.resources_per_body must be within [1,%d]", galaxy.NumResources)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Params maps the configuration onto engine tunables.
func (c *Config) Params() engine.Params {
	p := engine.DefaultParams()

	p.TicksPerMonth = c.Simulation.TicksPerMonth
	p.Workers = c.Simulation.Workers
	p.ShipSpeed = c.Simulation.ShipSpeed

	p.Pricing = economy.PricingParams{
		BufferMonths: c.Economy.BufferMonths,
		FloorMult:    c.Economy.PriceFloor,
		CeilingMult:  c.Economy.PriceCeiling,
	}
	p.ShortageTicks = c.Economy.ShortageTicks
	p.ConsumptionEnabled = c.Economy.ConsumptionEnabled
	p.RegenRate = c.Economy.RegenRate
	p.DepositCap = c.Economy.DepositCap
	p.PopulationGrowth = c.Economy.PopulationGrowth

	p.ExtractionYield = c.Research.ExtractionYield
	p.LoadingTime = c.Research.LoadingTime

	p.Mining = engine.MiningParams{
		Threshold:        c.Mining.Threshold,
		TripsPerContract: c.Mining.TripsPerContract,
		CargoCapacity:    c.Mining.CargoCapacity,
		FuelCapacity:     c.Mining.FuelCapacity,
		FuelBurn:         c.Mining.FuelBurn,
		FuelPrice:        c.Mining.FuelPrice,
		UpkeepPerDay:     c.Mining.UpkeepPerDay,
		LoadingDays:      c.Mining.LoadingDays,
		SleepDays:        c.Mining.SleepDays,
	}
	p.Trade = engine.TradeParams(c.Trade)
	p.Planner = engine.PlannerParams(c.Planner)
	p.Treasury = engine.TreasuryParams(c.Treasury)
	return p
}

// GenConfig maps the configuration onto galaxy generation settings.
func (c *Config) GenConfig() galaxy.GenConfig {
	return galaxy.GenConfig{
		Seed:               c.Simulation.Seed,
		Systems:            c.Galaxy.Systems,
		MaxBodiesPerSystem: c.Galaxy.MaxBodiesPerSystem,
		ResourcesPerBody:   c.Galaxy.ResourcesPerBody,
		Radius:             c.Galaxy.Radius,
		Empires:            c.Galaxy.Empires,
	}
}
