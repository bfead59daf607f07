package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/economy"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

const (
	homeID  galaxy.BodyID = 1
	rockID  galaxy.BodyID = 2
	depotID galaxy.BodyID = 3
	metals                = galaxy.ResourceMetals
)

// testParams isolates the controllers: no consumption, regeneration,
// growth, upkeep or commissioning unless a test turns them on.
func testParams() Params {
	p := DefaultParams()
	p.Workers = 2
	p.ShipSpeed = 10
	p.RegenRate = 0
	p.ConsumptionEnabled = false
	p.PopulationGrowth = 0
	p.Mining.Threshold = 500
	p.Mining.UpkeepPerDay = 0
	p.Mining.FuelBurn = 1
	p.Mining.FuelPrice = 1
	p.Mining.LoadingDays = 1
	p.Trade.FuelBurn = 1
	p.Trade.FuelPrice = 1
	p.Planner.MiningShipCost = 1e9
	p.Planner.FreighterCost = 1e9
	p.Treasury.StartingFunds = 0
	p.Treasury.MonthlySubsidy = 0
	p.Treasury.StateFleetUpkeep = 0
	return p
}

// testSim builds one system: a populated home world at the origin, an
// asteroid carrying metals 10 units away and an uninhabited depot 20 away.
func testSim(t *testing.T, p Params) *Simulation {
	t.Helper()
	g, err := galaxy.New(
		[]*galaxy.StarSystem{{ID: 1, Name: "sol"}},
		[]*galaxy.Body{
			{ID: homeID, Name: "home", System: 1, Class: galaxy.ClassTerrestrial, Population: 10000,
				Empire: 1, Shipyard: true,
				Yields: []galaxy.ResourceYield{{Resource: metals, Grade: 1}}},
			{ID: rockID, Name: "rock", System: 1, Class: galaxy.ClassAsteroid, Position: galaxy.Point{X: 10},
				Empire: 1, Yields: []galaxy.ResourceYield{{Resource: metals, Grade: 1}}},
			{ID: depotID, Name: "depot", System: 1, Class: galaxy.ClassBarren, Position: galaxy.Point{X: 20},
				Empire: 1, Yields: []galaxy.ResourceYield{{Resource: galaxy.ResourceCrystals, Grade: 1}}},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	sim, err := New(g, nil, p)
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func addMiner(t *testing.T, s *Simulation) *agents.MiningAgent {
	t.Helper()
	a := s.Spawner.SpawnMining(homeID, agents.OwnerCivilian, s.Params.miningSpec(), 0)
	if err := s.Agents.AddMining(a); err != nil {
		t.Fatal(err)
	}
	return a
}

func withContract(a *agents.MiningAgent, trips int) {
	a.State = agents.StateFulfillingContract
	a.Contract = &agents.Contract{Target: agents.Target{Body: rockID, Resource: metals}, TripsRemaining: trips}
}

func step(t *testing.T, s *Simulation) {
	t.Helper()
	if err := s.StepTick(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestProfitabilityScore(t *testing.T) {
	raw, adj := ProfitabilityScore(40, 200, 20, 0, 1)
	if raw != 7980 || adj != 3990 {
		t.Errorf("score = %v/%v, want 7980/3990", raw, adj)
	}
	if _, adj := ProfitabilityScore(40, 200, 20, 0, 0); adj != 7980 {
		t.Errorf("no competitors adjusted = %v", adj)
	}
}

// One competitor on the same target halves the score; it still clears 500.
func TestScenarioContractWithCompetitor(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(rockID, metals, 1000)

	seeker := addMiner(t, s)
	rival := addMiner(t, s)
	withContract(rival, 3)
	rival.BusyUntil = 1000

	step(t, s)

	if seeker.State != agents.StateFulfillingContract {
		t.Fatalf("state = %s, want fulfilling_contract", seeker.State)
	}
	if got := seeker.Contract.Target; got.Body != rockID || got.Resource != metals {
		t.Errorf("target = %+v", got)
	}
	if seeker.Contract.TargetPopulation != 0 {
		t.Error("contract formed on a populated body")
	}

	// Re-score against the tick-1 snapshot: home price 40, fuel 20.
	c, ok := s.scoreTarget(seeker, seeker.Contract.Target, 1)
	if !ok || c.raw != 7980 || c.adjusted != 3990 {
		t.Errorf("score = %+v ok=%v, want 7980/3990", c, ok)
	}
}

// Three completed trips leave too little stock to renew.
func TestScenarioContractEndsAfterThreeTrips(t *testing.T) {
	p := testParams()
	p.Mining.Threshold = 5000
	s := testSim(t, p)
	_ = s.Ledger().Set(rockID, metals, 650)
	a := addMiner(t, s)

	step(t, s)
	if a.State != agents.StateFulfillingContract {
		t.Fatalf("state = %s, want fulfilling_contract", a.State)
	}

	for i := 0; i < 30 && a.State == agents.StateFulfillingContract; i++ {
		step(t, s)
		if err := a.Validate(p.Mining.TripsPerContract); err != nil {
			t.Fatal(err)
		}
	}

	// The same-tick re-scan finds nothing better and the ship goes to sleep.
	if a.State != agents.StateSleeping || a.Contract != nil {
		t.Fatalf("state = %s contract = %+v, want sleeping with no contract", a.State, a.Contract)
	}
	if a.SleepUntil != s.LastTick+p.Mining.SleepDays {
		t.Errorf("sleep until %d, want %d", a.SleepUntil, s.LastTick+p.Mining.SleepDays)
	}
	if s.Stats.TripsCompleted != 3 {
		t.Errorf("trips = %d, want 3", s.Stats.TripsCompleted)
	}
	if got := s.Ledger().Stockpile(rockID, metals); got != 50 {
		t.Errorf("rock stock = %v, want 50", got)
	}
	if got := s.Ledger().Stockpile(homeID, metals); got != 600 {
		t.Errorf("home stock = %v, want 600", got)
	}
}

func TestContractRenewsWhileProfitable(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(rockID, metals, 100000)
	a := addMiner(t, s)

	for i := 0; i < 15; i++ {
		step(t, s)
	}
	if a.State != agents.StateFulfillingContract {
		t.Fatalf("state = %s, want fulfilling_contract", a.State)
	}
	if s.Stats.Renewals == 0 {
		t.Error("contract never renewed")
	}
}

func TestExhaustedTargetFailsTrip(t *testing.T) {
	s := testSim(t, testParams())
	a := addMiner(t, s)
	withContract(a, 3)

	step(t, s)

	if s.Stats.TripsFailed != 1 || s.Stats.TripsCompleted != 0 {
		t.Errorf("failed=%d completed=%d, want 1/0", s.Stats.TripsFailed, s.Stats.TripsCompleted)
	}
	if a.State != agents.StateSleeping || a.Contract != nil || a.SleepUntil != 91 {
		t.Errorf("state = %s until %d, want the same-tick re-scan to find nothing and sleep until 91", a.State, a.SleepUntil)
	}
	if !a.AtHome() || a.Fuel != a.FuelCapacity {
		t.Errorf("location=%d fuel=%v, want home and refueled", a.Location, a.Fuel)
	}
}

func TestFuelExhaustionHaltsUntilRefuel(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(rockID, metals, 1000)
	a := addMiner(t, s)
	withContract(a, 3)
	a.Fuel = 15 // enough for the outbound leg only

	step(t, s)
	if !a.Halted || a.Location != rockID || a.Cargo != 200 {
		t.Fatalf("halted=%v location=%d cargo=%v, want halted at rock with cargo", a.Halted, a.Location, a.Cargo)
	}
	if a.Contract.TripsCompleted != 0 {
		t.Error("halted trip counted as completed")
	}

	// Halted ships stay put.
	step(t, s)
	if a.Location != rockID {
		t.Fatal("halted ship moved")
	}

	s.Enqueue(RefuelAgent{ID: a.ID})
	step(t, s)
	if a.Halted || !a.AtHome() {
		t.Fatalf("halted=%v location=%d after refuel", a.Halted, a.Location)
	}
	if a.Contract.TripsCompleted != 1 {
		t.Errorf("trips completed = %d, want 1", a.Contract.TripsCompleted)
	}
	if got := s.Ledger().Stockpile(homeID, metals); got != 200 {
		t.Errorf("home stock = %v, want 200", got)
	}
}

func TestFuelExhaustionOnOutboundLeg(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(rockID, metals, 1000)
	a := addMiner(t, s)
	withContract(a, 3)
	a.Fuel = 5 // short of the 10 needed to reach the rock

	step(t, s)
	if !a.Halted || !a.AtHome() || a.Cargo != 0 {
		t.Fatalf("halted=%v location=%d cargo=%v, want halted at home and empty", a.Halted, a.Location, a.Cargo)
	}
	if got := s.Ledger().Stockpile(rockID, metals); got != 1000 {
		t.Errorf("rock stock = %v, want untouched 1000", got)
	}
	if a.Contract == nil || a.Contract.TripsCompleted != 0 {
		t.Fatalf("contract = %+v, want kept with no trips", a.Contract)
	}

	step(t, s)
	if !a.Halted || !a.AtHome() {
		t.Fatal("halted ship left home without fuel")
	}

	s.Enqueue(RefuelAgent{ID: a.ID})
	step(t, s)
	if a.Halted || a.Contract.TripsCompleted != 1 {
		t.Fatalf("halted=%v trips=%d after refuel", a.Halted, a.Contract.TripsCompleted)
	}
	if got := s.Ledger().Stockpile(rockID, metals); got != 800 {
		t.Errorf("rock stock = %v, want 800", got)
	}
}

func TestFailedTripRescansSameTick(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(depotID, galaxy.ResourceCrystals, 5000)
	a := addMiner(t, s)
	withContract(a, 3)

	step(t, s)

	if s.Stats.TripsFailed != 1 {
		t.Fatalf("failed trips = %d, want 1", s.Stats.TripsFailed)
	}
	if a.State != agents.StateFulfillingContract || a.Contract == nil {
		t.Fatalf("state = %s, want a new contract in the same tick", a.State)
	}
	want := agents.Target{Body: depotID, Resource: galaxy.ResourceCrystals}
	if a.Contract.Target != want || a.Contract.FormedTick != 1 {
		t.Errorf("contract = %+v, want %+v formed at tick 1", a.Contract, want)
	}
	if a.Contract.TripsCompleted != 0 || a.Contract.TripsRemaining != 3 {
		t.Errorf("trips = %d/%d, want a fresh contract", a.Contract.TripsCompleted, a.Contract.TripsRemaining)
	}
}

func TestNoTargetSleepsThenWakes(t *testing.T) {
	s := testSim(t, testParams())
	a := addMiner(t, s)

	step(t, s)
	if a.State != agents.StateSleeping || a.SleepUntil != 91 {
		t.Fatalf("state = %s until %d, want sleeping until 91", a.State, a.SleepUntil)
	}

	if err := s.Run(context.Background(), 89); err != nil {
		t.Fatal(err)
	}
	if a.State != agents.StateSleeping {
		t.Fatalf("woke early at tick %d", s.LastTick)
	}

	_ = s.Ledger().Set(rockID, metals, 1000)
	step(t, s)
	if a.State != agents.StateFulfillingContract {
		t.Errorf("state at tick %d = %s, want fulfilling_contract", s.LastTick, a.State)
	}
}

func addFreighter(t *testing.T, s *Simulation, at galaxy.BodyID, capacity float64) *agents.TradeAgent {
	t.Helper()
	f := s.Spawner.SpawnTrade(at, agents.OwnerCivilian, agents.ShipSpec{CargoCapacity: capacity}, 0)
	if err := s.Agents.AddTrade(f); err != nil {
		t.Fatal(err)
	}
	return f
}

func totalMetals(s *Simulation) float64 {
	return s.Ledger().Total(metals) + s.Agents.CargoInTransit(metals)
}

// A freighter asks for 1000 units where only 600 are held.
func TestScenarioPurchaseClamps(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(depotID, metals, 600)
	f := addFreighter(t, s, depotID, 1000)
	before := totalMetals(s)

	step(t, s)
	if f.Cargo == nil || f.Cargo.Quantity != 600 {
		t.Fatalf("cargo = %+v, want 600 metals", f.Cargo)
	}
	if got := s.Ledger().Stockpile(depotID, metals); got != 0 {
		t.Errorf("depot stock = %v, want 0", got)
	}
	if f.Route.Destination != homeID {
		t.Errorf("destination = %d, want home", f.Route.Destination)
	}

	for i := 0; i < 5 && f.Route != nil; i++ {
		step(t, s)
		if got := totalMetals(s); got != before {
			t.Fatalf("metals not conserved in transit: %v != %v", got, before)
		}
	}
	if f.Route != nil {
		t.Fatal("freighter never arrived")
	}
	if got := s.Ledger().Stockpile(homeID, metals); got != 600 {
		t.Errorf("home stock = %v, want 600", got)
	}
}

func TestTariffOnlyAcrossEmpires(t *testing.T) {
	tests := []struct {
		name       string
		depotEmp   galaxy.EmpireID
		wantTariff bool
	}{
		{"same empire", 1, false},
		{"cross border", 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSim(t, testParams())
			s.Galaxy.Body(depotID).Empire = tt.depotEmp
			_ = s.Ledger().Set(depotID, metals, 600)
			f := addFreighter(t, s, depotID, 1000)

			for i := 0; i < 6 && (f.Route != nil || s.LastTick == 0); i++ {
				step(t, s)
			}

			var tariff float64
			for _, p := range s.Treasury.Journal() {
				if p.Kind == treasury.KindTariff {
					if p.Body != homeID {
						t.Errorf("tariff posted to body %d, want destination", p.Body)
					}
					tariff += p.Amount.InexactFloat64()
				}
			}
			if tt.wantTariff {
				// 10% of 600 units sold at the ceiling price of 40.
				if math.Abs(tariff-2400) > 1e-6 {
					t.Errorf("tariff = %v, want 2400", tariff)
				}
			} else if tariff != 0 {
				t.Errorf("tariff = %v, want none", tariff)
			}
		})
	}
}

func TestPlannerCommissionsWhenAffordable(t *testing.T) {
	tests := []struct {
		name      string
		funds     float64
		maxAgents int
		existing  int
		wantNew   int
	}{
		{"affordable", 10000, 64, 0, 1},
		{"insufficient funds", 500, 64, 0, 0},
		{"body at cap", 10000, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			p.Treasury.StartingFunds = tt.funds
			p.Planner.MiningShipCost = 1000
			p.Planner.CommissionThreshold = 100
			p.Planner.MaxAgentsPerBody = tt.maxAgents
			s := testSim(t, p)
			_ = s.Ledger().Set(rockID, metals, 1000)
			for i := 0; i < tt.existing; i++ {
				a := addMiner(t, s)
				a.State = agents.StateSleeping
				a.SleepUntil = 1000
			}

			step(t, s)

			if got := s.Agents.Len() - tt.existing; got != tt.wantNew {
				t.Errorf("commissioned %d, want %d", got, tt.wantNew)
			}
			want := tt.funds - float64(tt.wantNew)*1000
			if got := s.Treasury.Balance(homeID).InexactFloat64(); got != want {
				t.Errorf("balance = %v, want %v", got, want)
			}
			if s.Treasury.Balance(homeID).IsNegative() {
				t.Error("planner overspent")
			}
		})
	}
}

func TestDestroyedCargoIsCountedAsLost(t *testing.T) {
	s := testSim(t, testParams())
	_ = s.Ledger().Set(depotID, metals, 600)
	f := addFreighter(t, s, depotID, 1000)

	step(t, s)
	if f.Cargo == nil || f.Cargo.Quantity != 600 {
		t.Fatalf("cargo = %+v, want 600 metals aboard", f.Cargo)
	}
	before := totalMetals(s)

	s.Enqueue(DestroyAgent{ID: f.ID, Reason: "combat"})
	step(t, s)

	if got := totalMetals(s); got != before-600 {
		t.Errorf("metals = %v, want %v", got, before-600)
	}
	if s.Stats.CargoLost != 600 {
		t.Errorf("cargo lost = %v, want 600", s.Stats.CargoLost)
	}
	var found bool
	for _, e := range s.Events {
		if e.Category == "command" && e.Meta["cargo_lost"] == 600.0 {
			found = true
		}
	}
	if !found {
		t.Error("no destruction event recording the lost cargo")
	}
}

func TestConsumptionCreditsConsumerSpending(t *testing.T) {
	p := testParams()
	p.ConsumptionEnabled = true
	s := testSim(t, p)
	_ = s.Ledger().Set(homeID, metals, 300)

	step(t, s)

	consumed := 300 - s.Ledger().Stockpile(homeID, metals)
	if consumed <= 0 {
		t.Fatal("nothing consumed")
	}
	want := consumed * economy.BaseValue(metals)
	var spent float64
	for _, post := range s.Treasury.Journal() {
		if post.Kind == treasury.KindConsumerSpending {
			if post.Body != homeID {
				t.Errorf("spending posted to body %d, want home", post.Body)
			}
			spent += post.Amount.InexactFloat64()
		}
	}
	if math.Abs(spent-want) > 1e-3 {
		t.Errorf("consumer spending = %v, want %v", spent, want)
	}
	if got := s.Treasury.Balance(homeID).InexactFloat64(); math.Abs(got-want) > 1e-3 {
		t.Errorf("balance = %v, want %v", got, want)
	}
}

// A cancelled context must leave no trace of a partial tick, so a retry
// matches a clean run.
func TestCancelledTickLeavesStateUntouched(t *testing.T) {
	build := func() *Simulation {
		p := testParams()
		p.ConsumptionEnabled = true
		s := testSim(t, p)
		_ = s.Ledger().Set(homeID, metals, 300)
		_ = s.Ledger().Set(rockID, metals, 1000)
		addMiner(t, s)
		s.Enqueue(SetPopulation{Body: homeID, Population: 12000})
		return s
	}

	aborted := build()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := aborted.StepTick(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if aborted.LastTick != 0 {
		t.Errorf("last tick = %d, want 0", aborted.LastTick)
	}
	if got := aborted.Ledger().Stockpile(homeID, metals); got != 300 {
		t.Errorf("home metals = %v, want 300", got)
	}
	if len(aborted.commands) != 1 {
		t.Errorf("queued commands = %d, want 1", len(aborted.commands))
	}
	if aborted.Galaxy.Body(homeID).Population != 10000 {
		t.Error("queued command applied by a cancelled tick")
	}
	if aborted.Agents.MiningAgents()[0].State != agents.StateSeekingContract {
		t.Error("miner committed during a cancelled tick")
	}

	clean := build()
	step(t, aborted)
	step(t, clean)
	if aborted.LastTick != 1 {
		t.Errorf("last tick after retry = %d, want 1", aborted.LastTick)
	}
	if string(stateBytes(t, aborted)) != string(stateBytes(t, clean)) {
		t.Error("retried tick diverges from a clean run")
	}
}

func TestStaleDestroyIsDropped(t *testing.T) {
	s := testSim(t, testParams())
	a := addMiner(t, s)
	s.Enqueue(DestroyAgent{ID: 999, Reason: "combat"})
	s.Enqueue(RefuelAgent{ID: 998})
	step(t, s)

	s.Enqueue(DestroyAgent{ID: a.ID, Reason: "scrapped"})
	step(t, s)
	if s.Agents.Len() != 0 {
		t.Errorf("agents = %d, want 0", s.Agents.Len())
	}
}

func generated(t *testing.T, seed int64) *Simulation {
	t.Helper()
	cfg := galaxy.GenConfig{Seed: seed, Systems: 8, MaxBodiesPerSystem: 5, ResourcesPerBody: 3, Radius: 300, Empires: 2}
	g, deposits, err := galaxy.Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultParams()
	p.Workers = 4
	s, err := New(g, deposits, p)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestInvariantsHoldEveryTick(t *testing.T) {
	s := generated(t, 3)
	pp := s.Params.Pricing
	for i := 0; i < 200; i++ {
		step(t, s)
		for _, a := range s.Agents.MiningAgents() {
			if err := a.Validate(s.Params.Mining.TripsPerContract); err != nil {
				t.Fatalf("tick %d: %v", s.LastTick, err)
			}
			if a.Contract != nil && a.Contract.TargetPopulation != 0 {
				t.Fatalf("tick %d: agent %d contracted a populated body", s.LastTick, a.ID)
			}
		}
		for _, e := range s.Ledger().Entries() {
			if e.Quantity < 0 {
				t.Fatalf("tick %d: negative stock %+v", s.LastTick, e)
			}
		}
		for _, pr := range s.Prices.All() {
			if pr.Value < pp.FloorMult*pr.BaseValue || pr.Value > pp.CeilingMult*pr.BaseValue {
				t.Fatalf("tick %d: price %+v outside clamp", s.LastTick, pr)
			}
		}
	}
}

func stateBytes(t *testing.T, s *Simulation) []byte {
	t.Helper()
	b, err := json.Marshal(struct {
		Ledger   any
		Mining   any
		Trade    any
		Treasury any
	}{s.Ledger().Entries(), s.Agents.MiningAgents(), s.Agents.TradeAgents(), s.Treasury.Accounts()})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDeterministicReplay(t *testing.T) {
	a, b := generated(t, 11), generated(t, 11)
	ctx := context.Background()
	if err := a.Run(ctx, 120); err != nil {
		t.Fatal(err)
	}
	if err := b.Run(ctx, 120); err != nil {
		t.Fatal(err)
	}
	if string(stateBytes(t, a)) != string(stateBytes(t, b)) {
		t.Error("identical runs diverged")
	}
}

func TestScenarioBuild(t *testing.T) {
	doc := []byte(`
name: twin
systems:
  - {id: 1, name: sol}
bodies:
  - id: 1
    name: home
    system: 1
    class: terrestrial
    population: 10000
    shipyard: true
    yields: {metals: 1}
    funds: 2500
  - id: 2
    name: rock
    system: 1
    class: asteroid
    position: {x: 10, y: 0}
    yields: {metals: 1.2, crystals: 0.5}
    stock: {metals: 800}
agents:
  - {kind: mining, home: 1, owner: state, count: 2}
  - {kind: freighter, home: 1}
`)
	sc, err := ParseScenario(doc)
	if err != nil {
		t.Fatal(err)
	}
	s, err := sc.Build(testParams())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Ledger().Stockpile(2, metals); got != 800 {
		t.Errorf("rock metals = %v", got)
	}
	if got := s.Treasury.Balance(1).InexactFloat64(); got != 2500 {
		t.Errorf("home funds = %v", got)
	}
	if n := len(s.Agents.MiningAgents()); n != 2 {
		t.Errorf("mining agents = %d", n)
	}
	if s.Agents.MiningAgents()[0].Owner != agents.OwnerState {
		t.Error("scenario owner ignored")
	}
	if len(s.Galaxy.Body(2).Yields) != 2 {
		t.Errorf("yields = %v", s.Galaxy.Body(2).Yields)
	}

	if _, err := ParseScenario([]byte("bodies: [{class: nebula}]")); err != nil {
		t.Fatal(err)
	}
	bad, _ := ParseScenario([]byte("bodies: [{id: 1, system: 1, class: nebula}]\nsystems: [{id: 1}]"))
	if _, err := bad.Build(testParams()); err == nil {
		t.Error("expected unknown class error")
	}
}
