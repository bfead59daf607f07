// Package persistence saves and restores the state needed to resume a
// simulation: the galaxy, the resource ledger, the agent directory and the
// treasury. Prices are derived and recomputed on load.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/engine"
)

// DB wraps a SQL connection for world state persistence.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Open opens or creates a database. driver is "sqlite" (dsn is a file path)
// or "postgres" (dsn is a connection string).
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == "sqlite" {
		// One writer; avoids SQLITE_BUSY between the tick loop and the API.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == "postgres" {
		idCol = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS systems (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			x DOUBLE PRECISION NOT NULL,
			y DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bodies (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			system_id BIGINT NOT NULL,
			class INTEGER NOT NULL,
			x DOUBLE PRECISION NOT NULL,
			y DOUBLE PRECISION NOT NULL,
			population DOUBLE PRECISION NOT NULL,
			infrastructure INTEGER NOT NULL,
			empire INTEGER NOT NULL,
			shipyard INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS body_yields (
			body_id BIGINT NOT NULL,
			resource INTEGER NOT NULL,
			grade DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (body_id, resource)
		)`,
		`CREATE TABLE IF NOT EXISTS stockpiles (
			body_id BIGINT NOT NULL,
			resource INTEGER NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (body_id, resource)
		)`,
		`CREATE TABLE IF NOT EXISTS mining_agents (
			id BIGINT PRIMARY KEY,
			home BIGINT NOT NULL,
			owner INTEGER NOT NULL,
			state INTEGER NOT NULL,
			contract_json TEXT NOT NULL,
			cargo_capacity DOUBLE PRECISION NOT NULL,
			fuel DOUBLE PRECISION NOT NULL,
			fuel_capacity DOUBLE PRECISION NOT NULL,
			location BIGINT NOT NULL,
			cargo DOUBLE PRECISION NOT NULL,
			cargo_resource INTEGER NOT NULL,
			sleep_until BIGINT NOT NULL,
			busy_until BIGINT NOT NULL,
			halted INTEGER NOT NULL,
			created_tick BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trade_agents (
			id BIGINT PRIMARY KEY,
			home BIGINT NOT NULL,
			owner INTEGER NOT NULL,
			cargo_capacity DOUBLE PRECISION NOT NULL,
			location BIGINT NOT NULL,
			cargo_json TEXT NOT NULL,
			route_json TEXT NOT NULL,
			created_tick BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS treasury_accounts (
			body_id BIGINT PRIMARY KEY,
			balance TEXT NOT NULL,
			income_json TEXT NOT NULL,
			expense_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS treasury_postings (
			seq BIGINT PRIMARY KEY,
			tick BIGINT NOT NULL,
			kind INTEGER NOT NULL,
			amount TEXT NOT NULL,
			body_id BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id ` + idCol + `,
			tick BIGINT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS world_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick)`,
		`CREATE INDEX IF NOT EXISTS idx_bodies_system ON bodies(system_id)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := saveMeta(tx, key, value); err != nil {
		return err
	}
	return tx.Commit()
}

func saveMeta(tx *sqlx.Tx, key, value string) error {
	if _, err := tx.Exec(tx.Rebind("DELETE FROM world_meta WHERE key = ?"), key); err != nil {
		return err
	}
	_, err := tx.Exec(tx.Rebind("INSERT INTO world_meta (key, value) VALUES (?, ?)"), key, value)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, db.conn.Rebind("SELECT value FROM world_meta WHERE key = ?"), key)
	return value, err
}

// HasWorld reports whether a saved world exists.
func (db *DB) HasWorld() (bool, error) {
	_, err := db.GetMeta("last_tick")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := tx.Rebind("INSERT INTO events (tick, description, category) VALUES (?, ?, ?)")
	for _, e := range events {
		if _, err := tx.Exec(q, e.Tick, e.Description, e.Category); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		db.conn.Rebind("SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?"),
		limit,
	)
	return events, err
}

// SaveWorldState performs a full save of all world state in one transaction.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	var err error
	sim.View(func(s *engine.Simulation) {
		err = db.save(s)
	})
	return err
}

func (db *DB) save(sim *engine.Simulation) error {
	mining := sim.Agents.MiningAgents()
	trade := sim.Agents.TradeAgents()
	slog.Info("saving world state",
		"tick", sim.LastTick, "bodies", len(sim.Galaxy.Bodies),
		"mining_agents", len(mining), "trade_agents", len(trade))

	saveID, err := db.GetMeta("save_id")
	if errors.Is(err, sql.ErrNoRows) {
		saveID, err = uuid.NewString(), nil
	}
	if err != nil {
		return fmt.Errorf("read save id: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"systems", "bodies", "body_yields", "stockpiles",
		"mining_agents", "trade_agents", "treasury_accounts", "treasury_postings"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveGalaxy(tx, sim); err != nil {
		return fmt.Errorf("save galaxy: %w", err)
	}
	if err := saveStockpiles(tx, sim); err != nil {
		return fmt.Errorf("save stockpiles: %w", err)
	}
	if err := saveMining(tx, mining); err != nil {
		return fmt.Errorf("save mining agents: %w", err)
	}
	if err := saveTrade(tx, trade); err != nil {
		return fmt.Errorf("save trade agents: %w", err)
	}
	if err := saveTreasury(tx, sim); err != nil {
		return fmt.Errorf("save treasury: %w", err)
	}

	meta := map[string]string{
		"last_tick":     strconv.FormatUint(sim.LastTick, 10),
		"next_agent_id": strconv.FormatUint(uint64(sim.Spawner.NextID()), 10),
		"posting_seq":   strconv.FormatUint(sim.Treasury.Seq(), 10),
		"seed":          strconv.FormatInt(sim.Seed, 10),
		"save_id":       saveID,
		"saved_at":      time.Now().UTC().Format(time.RFC3339),
	}
	for _, k := range []string{"last_tick", "next_agent_id", "posting_seq", "seed", "save_id", "saved_at"} {
		if err := saveMeta(tx, k, meta[k]); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world state saved", "save_id", saveID)
	return nil
}

func saveGalaxy(tx *sqlx.Tx, sim *engine.Simulation) error {
	for _, s := range sim.Galaxy.Systems {
		_, err := tx.Exec(tx.Rebind("INSERT INTO systems (id, name, x, y) VALUES (?, ?, ?, ?)"),
			s.ID, s.Name, s.Position.X, s.Position.Y)
		if err != nil {
			return fmt.Errorf("insert system %d: %w", s.ID, err)
		}
	}

	bodyStmt, err := tx.Preparex(tx.Rebind(`INSERT INTO bodies
		(id, name, system_id, class, x, y, population, infrastructure, empire, shipyard)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer bodyStmt.Close()
	yieldStmt, err := tx.Preparex(tx.Rebind("INSERT INTO body_yields (body_id, resource, grade) VALUES (?, ?, ?)"))
	if err != nil {
		return err
	}
	defer yieldStmt.Close()

	for _, b := range sim.Galaxy.Bodies {
		_, err := bodyStmt.Exec(b.ID, b.Name, b.System, b.Class, b.Position.X, b.Position.Y,
			b.Population, b.Infrastructure, b.Empire, boolInt(b.Shipyard))
		if err != nil {
			return fmt.Errorf("insert body %d: %w", b.ID, err)
		}
		for _, y := range b.Yields {
			if _, err := yieldStmt.Exec(b.ID, y.Resource, y.Grade); err != nil {
				return fmt.Errorf("insert yield %d/%s: %w", b.ID, y.Resource, err)
			}
		}
	}
	return nil
}

func saveStockpiles(tx *sqlx.Tx, sim *engine.Simulation) error {
	stmt, err := tx.Preparex(tx.Rebind("INSERT INTO stockpiles (body_id, resource, quantity) VALUES (?, ?, ?)"))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range sim.Ledger().Entries() {
		if _, err := stmt.Exec(e.Body, e.Resource, e.Quantity); err != nil {
			return fmt.Errorf("insert stockpile %d/%s: %w", e.Body, e.Resource, err)
		}
	}
	return nil
}

func saveMining(tx *sqlx.Tx, list []*agents.MiningAgent) error {
	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO mining_agents
		(id, home, owner, state, contract_json, cargo_capacity, fuel, fuel_capacity,
		 location, cargo, cargo_resource, sleep_until, busy_until, halted, created_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range list {
		contractJSON, err := json.Marshal(a.Contract)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(a.ID, a.Home, a.Owner, a.State, string(contractJSON),
			a.CargoCapacity, a.Fuel, a.FuelCapacity, a.Location, a.Cargo, a.CargoResource,
			a.SleepUntil, a.BusyUntil, boolInt(a.Halted), a.CreatedTick)
		if err != nil {
			return fmt.Errorf("insert mining agent %d: %w", a.ID, err)
		}
	}
	return nil
}

func saveTrade(tx *sqlx.Tx, list []*agents.TradeAgent) error {
	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO trade_agents
		(id, home, owner, cargo_capacity, location, cargo_json, route_json, created_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range list {
		cargoJSON, _ := json.Marshal(t.Cargo)
		routeJSON, _ := json.Marshal(t.Route)
		_, err := stmt.Exec(t.ID, t.Home, t.Owner, t.CargoCapacity, t.Location,
			string(cargoJSON), string(routeJSON), t.CreatedTick)
		if err != nil {
			return fmt.Errorf("insert trade agent %d: %w", t.ID, err)
		}
	}
	return nil
}

func saveTreasury(tx *sqlx.Tx, sim *engine.Simulation) error {
	for _, a := range sim.Treasury.Accounts() {
		incomeJSON, _ := json.Marshal(a.Income)
		expenseJSON, _ := json.Marshal(a.Expense)
		_, err := tx.Exec(tx.Rebind(`INSERT INTO treasury_accounts
			(body_id, balance, income_json, expense_json) VALUES (?, ?, ?, ?)`),
			a.Body, a.Balance, string(incomeJSON), string(expenseJSON))
		if err != nil {
			return fmt.Errorf("insert account %d: %w", a.Body, err)
		}
	}

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO treasury_postings
		(seq, tick, kind, amount, body_id) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range sim.Treasury.Journal() {
		if _, err := stmt.Exec(p.Seq, p.Tick, p.Kind, p.Amount, p.Body); err != nil {
			return fmt.Errorf("insert posting %d: %w", p.Seq, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
