package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/galaxy"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newSim(t *testing.T) *engine.Simulation {
	t.Helper()
	cfg := galaxy.SmallTestConfig()
	g, deposits, err := galaxy.Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := engine.DefaultParams()
	p.Workers = 2
	sim, err := engine.New(g, deposits, p)
	if err != nil {
		t.Fatal(err)
	}
	sim.Seed = cfg.Seed
	for _, b := range g.Bodies {
		if !b.Inhabited() {
			continue
		}
		m := sim.Spawner.SpawnMining(b.ID, agents.OwnerCivilian, agents.ShipSpec{CargoCapacity: 200, FuelCapacity: 400}, 0)
		if err := sim.Agents.AddMining(m); err != nil {
			t.Fatal(err)
		}
		f := sim.Spawner.SpawnTrade(b.ID, agents.OwnerState, agents.ShipSpec{CargoCapacity: 500}, 0)
		if err := sim.Agents.AddTrade(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := sim.Run(context.Background(), 45); err != nil {
		t.Fatal(err)
	}
	return sim
}

// snapshot captures the persisted part of a simulation as JSON.
func snapshot(t *testing.T, sim *engine.Simulation) string {
	t.Helper()
	state := map[string]any{
		"bodies":   sim.Galaxy.Bodies,
		"stock":    sim.Ledger().Entries(),
		"mining":   sim.Agents.MiningAgents(),
		"trade":    sim.Agents.TradeAgents(),
		"accounts": sim.Treasury.Accounts(),
		"journal":  sim.Treasury.Journal(),
		"tick":     sim.LastTick,
		"next_id":  sim.Spawner.NextID(),
	}
	b, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTemp(t)
	sim := newSim(t)

	if ok, err := db.HasWorld(); err != nil || ok {
		t.Fatalf("HasWorld before save = %v, %v", ok, err)
	}
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ok, err := db.HasWorld(); err != nil || !ok {
		t.Fatalf("HasWorld after save = %v, %v", ok, err)
	}

	loaded, err := db.LoadWorld(sim.Params)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := snapshot(t, loaded), snapshot(t, sim); got != want {
		t.Errorf("round trip mismatch\n got: %s\nwant: %s", got, want)
	}
	if loaded.Seed != sim.Seed {
		t.Errorf("seed = %d, want %d", loaded.Seed, sim.Seed)
	}
	if loaded.Treasury.Seq() != sim.Treasury.Seq() {
		t.Errorf("posting seq = %d, want %d", loaded.Treasury.Seq(), sim.Treasury.Seq())
	}
}

func TestLoadedWorldContinuesIdentically(t *testing.T) {
	db := openTemp(t)
	sim := newSim(t)
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	loaded, err := db.LoadWorld(sim.Params)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := sim.Run(ctx, 30); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Run(ctx, 30); err != nil {
		t.Fatal(err)
	}
	if got, want := snapshot(t, loaded), snapshot(t, sim); got != want {
		t.Errorf("resumed run diverged from uninterrupted run")
	}
}

func TestSaveIDStable(t *testing.T) {
	db := openTemp(t)
	sim := newSim(t)
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	first, err := db.GetMeta("save_id")
	if err != nil || first == "" {
		t.Fatalf("save_id = %q, %v", first, err)
	}
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	second, _ := db.GetMeta("save_id")
	if first != second {
		t.Errorf("save_id changed between saves: %s -> %s", first, second)
	}
}

func TestMetaOverwrite(t *testing.T) {
	db := openTemp(t)
	if err := db.SaveMeta("k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("k", "two"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("k")
	if err != nil || v != "two" {
		t.Errorf("GetMeta = %q, %v; want two", v, err)
	}
}

func TestRecentEvents(t *testing.T) {
	db := openTemp(t)
	events := []engine.Event{
		{Tick: 1, Description: "first", Category: "mining"},
		{Tick: 2, Description: "second", Category: "trade"},
		{Tick: 3, Description: "third", Category: "planner"},
	}
	if err := db.SaveEvents(events); err != nil {
		t.Fatal(err)
	}
	got, err := db.RecentEvents(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Description != "third" || got[1].Description != "second" {
		t.Errorf("RecentEvents = %+v", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
