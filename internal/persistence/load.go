package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

type systemRow struct {
	ID   galaxy.SystemID `db:"id"`
	Name string          `db:"name"`
	X    float64         `db:"x"`
	Y    float64         `db:"y"`
}

type bodyRow struct {
	ID             galaxy.BodyID    `db:"id"`
	Name           string           `db:"name"`
	System         galaxy.SystemID  `db:"system_id"`
	Class          galaxy.BodyClass `db:"class"`
	X              float64          `db:"x"`
	Y              float64          `db:"y"`
	Population     float64          `db:"population"`
	Infrastructure uint8            `db:"infrastructure"`
	Empire         galaxy.EmpireID  `db:"empire"`
	Shipyard       int              `db:"shipyard"`
}

type yieldRow struct {
	Body     galaxy.BodyID   `db:"body_id"`
	Resource galaxy.Resource `db:"resource"`
	Grade    float64         `db:"grade"`
}

type stockRow struct {
	Body     galaxy.BodyID   `db:"body_id"`
	Resource galaxy.Resource `db:"resource"`
	Quantity float64         `db:"quantity"`
}

type miningRow struct {
	ID            agents.AgentID     `db:"id"`
	Home          galaxy.BodyID      `db:"home"`
	Owner         agents.Ownership   `db:"owner"`
	State         agents.MiningState `db:"state"`
	ContractJSON  string             `db:"contract_json"`
	CargoCapacity float64            `db:"cargo_capacity"`
	Fuel          float64            `db:"fuel"`
	FuelCapacity  float64            `db:"fuel_capacity"`
	Location      galaxy.BodyID      `db:"location"`
	Cargo         float64            `db:"cargo"`
	CargoResource galaxy.Resource    `db:"cargo_resource"`
	SleepUntil    uint64             `db:"sleep_until"`
	BusyUntil     uint64             `db:"busy_until"`
	Halted        int                `db:"halted"`
	CreatedTick   uint64             `db:"created_tick"`
}

type tradeRow struct {
	ID            agents.AgentID   `db:"id"`
	Home          galaxy.BodyID    `db:"home"`
	Owner         agents.Ownership `db:"owner"`
	CargoCapacity float64          `db:"cargo_capacity"`
	Location      galaxy.BodyID    `db:"location"`
	CargoJSON     string           `db:"cargo_json"`
	RouteJSON     string           `db:"route_json"`
	CreatedTick   uint64           `db:"created_tick"`
}

type accountRow struct {
	Body        galaxy.BodyID   `db:"body_id"`
	Balance     decimal.Decimal `db:"balance"`
	IncomeJSON  string          `db:"income_json"`
	ExpenseJSON string          `db:"expense_json"`
}

// LoadWorld rebuilds a simulation from the saved state. Prices are
// recomputed from the restored stockpiles and populations.
func (db *DB) LoadWorld(p engine.Params) (*engine.Simulation, error) {
	g, err := db.loadGalaxy()
	if err != nil {
		return nil, fmt.Errorf("load galaxy: %w", err)
	}

	var stocks []stockRow
	if err := db.conn.Select(&stocks, "SELECT body_id, resource, quantity FROM stockpiles ORDER BY body_id, resource"); err != nil {
		return nil, fmt.Errorf("load stockpiles: %w", err)
	}
	deposits := make([]galaxy.Deposit, 0, len(stocks))
	for _, s := range stocks {
		deposits = append(deposits, galaxy.Deposit{Body: s.Body, Resource: s.Resource, Quantity: s.Quantity})
	}

	sim, err := engine.New(g, deposits, p)
	if err != nil {
		return nil, err
	}

	if err := db.loadAgents(sim); err != nil {
		return nil, err
	}
	if err := db.loadTreasury(sim); err != nil {
		return nil, err
	}

	lastTick, err := db.metaUint("last_tick")
	if err != nil {
		return nil, err
	}
	nextID, err := db.metaUint("next_agent_id")
	if err != nil {
		return nil, err
	}
	seq, err := db.metaUint("posting_seq")
	if err != nil {
		return nil, err
	}
	if v, err := db.GetMeta("seed"); err == nil {
		sim.Seed, _ = strconv.ParseInt(v, 10, 64)
	}

	sim.LastTick = lastTick
	sim.Spawner.SetNextID(agents.AgentID(nextID))
	if seq > sim.Treasury.Seq() {
		sim.Treasury.SetSeq(seq)
	}
	sim.Reprice()

	slog.Info("world state loaded",
		"tick", sim.LastTick, "bodies", len(g.Bodies), "agents", sim.Agents.Len())
	return sim, nil
}

func (db *DB) metaUint(key string) (uint64, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, fmt.Errorf("read meta %s: %w", key, err)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse meta %s: %w", key, err)
	}
	return n, nil
}

func (db *DB) loadGalaxy() (*galaxy.Galaxy, error) {
	var sysRows []systemRow
	if err := db.conn.Select(&sysRows, "SELECT id, name, x, y FROM systems ORDER BY id"); err != nil {
		return nil, err
	}
	var bodyRows []bodyRow
	if err := db.conn.Select(&bodyRows, `SELECT id, name, system_id, class, x, y, population,
		infrastructure, empire, shipyard FROM bodies ORDER BY id`); err != nil {
		return nil, err
	}
	var yieldRows []yieldRow
	if err := db.conn.Select(&yieldRows, "SELECT body_id, resource, grade FROM body_yields ORDER BY body_id, resource"); err != nil {
		return nil, err
	}

	systems := make([]*galaxy.StarSystem, 0, len(sysRows))
	for _, r := range sysRows {
		s := &galaxy.StarSystem{ID: r.ID, Name: r.Name, Position: galaxy.Point{X: r.X, Y: r.Y}}
		systems = append(systems, s)
	}

	bodies := make([]*galaxy.Body, 0, len(bodyRows))
	bodyIndex := make(map[galaxy.BodyID]*galaxy.Body, len(bodyRows))
	for _, r := range bodyRows {
		b := &galaxy.Body{
			ID:             r.ID,
			Name:           r.Name,
			System:         r.System,
			Class:          r.Class,
			Position:       galaxy.Point{X: r.X, Y: r.Y},
			Population:     r.Population,
			Infrastructure: r.Infrastructure,
			Empire:         r.Empire,
			Shipyard:       r.Shipyard != 0,
		}
		bodies = append(bodies, b)
		bodyIndex[b.ID] = b
	}
	for _, y := range yieldRows {
		if b, ok := bodyIndex[y.Body]; ok {
			b.Yields = append(b.Yields, galaxy.ResourceYield{Resource: y.Resource, Grade: y.Grade})
		}
	}

	return galaxy.New(systems, bodies)
}

func (db *DB) loadAgents(sim *engine.Simulation) error {
	var mRows []miningRow
	if err := db.conn.Select(&mRows, `SELECT id, home, owner, state, contract_json, cargo_capacity,
		fuel, fuel_capacity, location, cargo, cargo_resource, sleep_until, busy_until, halted,
		created_tick FROM mining_agents ORDER BY id`); err != nil {
		return fmt.Errorf("load mining agents: %w", err)
	}
	for _, r := range mRows {
		a := &agents.MiningAgent{
			ID:            r.ID,
			Home:          r.Home,
			Owner:         r.Owner,
			State:         r.State,
			CargoCapacity: r.CargoCapacity,
			Fuel:          r.Fuel,
			FuelCapacity:  r.FuelCapacity,
			Location:      r.Location,
			Cargo:         r.Cargo,
			CargoResource: r.CargoResource,
			SleepUntil:    r.SleepUntil,
			BusyUntil:     r.BusyUntil,
			Halted:        r.Halted != 0,
			CreatedTick:   r.CreatedTick,
		}
		if err := json.Unmarshal([]byte(r.ContractJSON), &a.Contract); err != nil {
			return fmt.Errorf("decode contract of agent %d: %w", r.ID, err)
		}
		if err := sim.Agents.AddMining(a); err != nil {
			return err
		}
		sim.Spawner.Observe(a.ID)
	}

	var tRows []tradeRow
	if err := db.conn.Select(&tRows, `SELECT id, home, owner, cargo_capacity, location,
		cargo_json, route_json, created_tick FROM trade_agents ORDER BY id`); err != nil {
		return fmt.Errorf("load trade agents: %w", err)
	}
	for _, r := range tRows {
		t := &agents.TradeAgent{
			ID:            r.ID,
			Home:          r.Home,
			Owner:         r.Owner,
			CargoCapacity: r.CargoCapacity,
			Location:      r.Location,
			CreatedTick:   r.CreatedTick,
		}
		if err := json.Unmarshal([]byte(r.CargoJSON), &t.Cargo); err != nil {
			return fmt.Errorf("decode cargo of agent %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.RouteJSON), &t.Route); err != nil {
			return fmt.Errorf("decode route of agent %d: %w", r.ID, err)
		}
		if err := sim.Agents.AddTrade(t); err != nil {
			return err
		}
		sim.Spawner.Observe(t.ID)
	}
	return nil
}

func (db *DB) loadTreasury(sim *engine.Simulation) error {
	var aRows []accountRow
	if err := db.conn.Select(&aRows, `SELECT body_id, balance, income_json, expense_json
		FROM treasury_accounts ORDER BY body_id`); err != nil {
		return fmt.Errorf("load treasury accounts: %w", err)
	}
	accounts := make([]treasury.Account, 0, len(aRows))
	for _, r := range aRows {
		a := treasury.Account{Body: r.Body, Balance: r.Balance}
		if err := json.Unmarshal([]byte(r.IncomeJSON), &a.Income); err != nil {
			return fmt.Errorf("decode income of %d: %w", r.Body, err)
		}
		if err := json.Unmarshal([]byte(r.ExpenseJSON), &a.Expense); err != nil {
			return fmt.Errorf("decode expense of %d: %w", r.Body, err)
		}
		accounts = append(accounts, a)
	}

	var journal []treasury.Posting
	if err := db.conn.Select(&journal, `SELECT seq, tick, kind, amount, body_id
		FROM treasury_postings ORDER BY seq`); err != nil {
		return fmt.Errorf("load treasury journal: %w", err)
	}

	sim.Treasury.Restore(accounts, journal)
	return nil
}
