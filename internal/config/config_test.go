package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/starmarket/internal/engine"
)

func TestLoadReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Simulation.TicksPerMonth != 30 {
		t.Errorf("Simulation.TicksPerMonth: got %d, want 30", cfg.Simulation.TicksPerMonth)
	}
	if cfg.Simulation.DBDriver != "sqlite" {
		t.Errorf("Simulation.DBDriver: got %q, want sqlite", cfg.Simulation.DBDriver)
	}
	if cfg.Simulation.TickInterval != time.Second {
		t.Errorf("Simulation.TickInterval: got %v, want 1s", cfg.Simulation.TickInterval)
	}
	if cfg.Economy.BufferMonths != 3 {
		t.Errorf("Economy.BufferMonths: got %g, want 3", cfg.Economy.BufferMonths)
	}
	if cfg.Economy.PriceFloor != 0.25 || cfg.Economy.PriceCeiling != 4 {
		t.Errorf("price clamp: got [%g, %g], want [0.25, 4]", cfg.Economy.PriceFloor, cfg.Economy.PriceCeiling)
	}
	if cfg.Mining.TripsPerContract != 3 {
		t.Errorf("Mining.TripsPerContract: got %d, want 3", cfg.Mining.TripsPerContract)
	}
	if cfg.Mining.SleepDays != 90 {
		t.Errorf("Mining.SleepDays: got %d, want 90", cfg.Mining.SleepDays)
	}
	if cfg.Galaxy.ResourcesPerBody != 3 {
		t.Errorf("Galaxy.ResourcesPerBody: got %d, want 3", cfg.Galaxy.ResourcesPerBody)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want info", cfg.Logging.Level)
	}
}

func TestDefaultsMatchEngine(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.Params(), engine.DefaultParams(); got != want {
		t.Errorf("Params() from defaults = %+v\nwant %+v", got, want)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "starmarket.yaml")
	content := `
simulation:
  seed: 7
  tick_interval: 250ms
mining:
  threshold: 1200
  sleep_days: 45
trade:
  range: 0
api:
  cors_origins:
    - http://localhost:3000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error: %v", path, err)
	}
	if cfg.Simulation.Seed != 7 {
		t.Errorf("Simulation.Seed: got %d, want 7", cfg.Simulation.Seed)
	}
	if cfg.Simulation.TickInterval != 250*time.Millisecond {
		t.Errorf("Simulation.TickInterval: got %v", cfg.Simulation.TickInterval)
	}
	p := cfg.Params()
	if p.Mining.Threshold != 1200 || p.Mining.SleepDays != 45 {
		t.Errorf("mining params: %+v", p.Mining)
	}
	if p.Trade.Range != 0 {
		t.Errorf("Trade.Range: got %g, want 0", p.Trade.Range)
	}
	// Untouched keys keep their defaults.
	if p.Mining.TripsPerContract != 3 {
		t.Errorf("Mining.TripsPerContract: got %d, want 3", p.Mining.TripsPerContract)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("API.CORSOrigins: got %v", cfg.API.CORSOrigins)
	}
	if g := cfg.GenConfig(); g.Seed != 7 {
		t.Errorf("GenConfig().Seed: got %d, want 7", g.Seed)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("STARMARKET_MINING_THRESHOLD", "900")
	t.Setenv("STARMARKET_TREASURY_TARIFF_RATE", "0.25")
	t.Setenv("STARMARKET_API_ADMIN_KEY", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mining.Threshold != 900 {
		t.Errorf("Mining.Threshold: got %g, want 900", cfg.Mining.Threshold)
	}
	if cfg.Treasury.TariffRate != 0.25 {
		t.Errorf("Treasury.TariffRate: got %g, want 0.25", cfg.Treasury.TariffRate)
	}
	if cfg.API.AdminKey != "secret" {
		t.Errorf("API.AdminKey: got %q, want secret", cfg.API.AdminKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero buffer", func(c *Config) { c.Economy.BufferMonths = 0 }, "buffer_months"},
		{"floor above ceiling", func(c *Config) { c.Economy.PriceFloor = 5 }, "price_floor"},
		{"tax over one", func(c *Config) { c.Treasury.CorporateTaxRate = 1.5 }, "corporate_tax_rate"},
		{"negative tariff", func(c *Config) { c.Treasury.TariffRate = -0.1 }, "tariff_rate"},
		{"unknown driver", func(c *Config) { c.Simulation.DBDriver = "mysql" }, "db_driver"},
		{"too many resources", func(c *Config) { c.Galaxy.ResourcesPerBody = 9 }, "resources_per_body"},
		{"zero trips", func(c *Config) { c.Mining.TripsPerContract = 0 }, "trips_per_contract"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
