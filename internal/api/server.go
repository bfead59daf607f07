// Package api provides the HTTP API for observing the economy.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/economy"
	"github.com/talgya/starmarket/internal/engine"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/persistence"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          *persistence.DB // optional; enables event history
	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	CORSOrigins []string
	Limiter     *RateLimiter // optional
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/bodies", s.handleBodies)
	mux.HandleFunc("/api/v1/body/", s.handleBodyDetail)
	mux.HandleFunc("/api/v1/prices", s.handlePrices)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/treasury", s.handleTreasury)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/intervention", s.adminOnly(s.handleIntervention))

	var h http.Handler = mux
	if s.Limiter != nil {
		h = s.Limiter.Middleware(h)
	}

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(h)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	if s.Limiter != nil {
		go func() {
			t := time.NewTicker(time.Minute)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					s.Limiter.Cleanup(10 * time.Minute)
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no api.admin_key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Sim.View(func(sim *engine.Simulation) {
		mining := sim.Agents.MiningAgents()
		byState := make(map[string]int, 3)
		for _, a := range mining {
			byState[a.State.String()]++
		}
		status = map[string]any{
			"tick":           sim.LastTick,
			"sim_time":       engine.SimTime(sim.LastTick),
			"seed":           sim.Seed,
			"systems":        len(sim.Galaxy.Systems),
			"bodies":         len(sim.Galaxy.Bodies),
			"inhabited":      sim.Galaxy.InhabitedCount(),
			"mining_agents":  len(mining),
			"mining_states":  byState,
			"trade_agents":   len(sim.Agents.TradeAgents()),
			"treasury_total": sim.Treasury.Total(),
			"stats":          sim.Stats,
		}
	})
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

type bodySummary struct {
	ID         galaxy.BodyID      `json:"id"`
	Name       string             `json:"name"`
	System     galaxy.SystemID    `json:"system_id"`
	Class      string             `json:"class"`
	Population float64            `json:"population"`
	Empire     galaxy.EmpireID    `json:"empire"`
	Shipyard   bool               `json:"shipyard"`
	Stock      map[string]float64 `json:"stock"`
}

func summarizeBody(b *galaxy.Body, stock economy.Stock) bodySummary {
	out := bodySummary{
		ID:         b.ID,
		Name:       b.Name,
		System:     b.System,
		Class:      b.Class.String(),
		Population: math.Round(b.Population),
		Empire:     b.Empire,
		Shipyard:   b.Shipyard,
		Stock:      make(map[string]float64),
	}
	for r, q := range stock {
		if q > 0 {
			out.Stock[galaxy.Resource(r).String()] = q
		}
	}
	return out
}

func (s *Server) handleBodies(w http.ResponseWriter, r *http.Request) {
	inhabitedOnly := r.URL.Query().Get("inhabited") == "true"

	result := []bodySummary{}
	s.Sim.View(func(sim *engine.Simulation) {
		for _, b := range sim.Galaxy.Bodies {
			if inhabitedOnly && !b.Inhabited() {
				continue
			}
			stock, _ := sim.Ledger().Row(b.ID)
			result = append(result, summarizeBody(b, stock))
		}
	})
	writeJSON(w, result)
}

// priceView exposes a snapshot price with the supply ratio; ratio is null
// where there is no demand.
type priceView struct {
	Body      galaxy.BodyID `json:"body_id"`
	Resource  string        `json:"resource"`
	BaseValue float64       `json:"base_value"`
	Ratio     *float64      `json:"ratio"`
	Price     float64       `json:"price"`
	Tradable  bool          `json:"tradable"`
}

func viewPrice(p economy.Price) priceView {
	v := priceView{
		Body:      p.Body,
		Resource:  p.Resource.String(),
		BaseValue: p.BaseValue,
		Price:     p.Value,
		Tradable:  p.Tradable,
	}
	if !math.IsInf(p.Ratio, 0) && !math.IsNaN(p.Ratio) {
		ratio := p.Ratio
		v.Ratio = &ratio
	}
	return v
}

func (s *Server) handleBodyDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/body/"), "/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid body id", http.StatusBadRequest)
		return
	}

	var detail map[string]any
	s.Sim.View(func(sim *engine.Simulation) {
		b := sim.Galaxy.Body(galaxy.BodyID(id))
		if b == nil {
			return
		}
		stock, _ := sim.Ledger().Row(b.ID)
		demand := sim.Market.Demand(b.ID)

		prices := make([]priceView, 0, galaxy.NumResources)
		demandOut := make(map[string]float64)
		for _, res := range galaxy.AllResources() {
			if p, ok := sim.Prices.Price(b.ID, res); ok {
				prices = append(prices, viewPrice(p))
			}
			if demand[res] > 0 {
				demandOut[res.String()] = demand[res]
			}
		}

		yields := make(map[string]float64, len(b.Yields))
		for _, y := range b.Yields {
			yields[y.Resource.String()] = y.Grade
		}

		miners, freighters := sim.Agents.CountHome(b.ID)
		detail = map[string]any{
			"body":           summarizeBody(b, stock),
			"infrastructure": b.Infrastructure,
			"yields":         yields,
			"demand":         demandOut,
			"prices":         prices,
			"mining_agents":  miners,
			"trade_agents":   freighters,
		}
		if b.Inhabited() {
			detail["balance"] = sim.Treasury.Balance(b.ID)
		}
	})
	if detail == nil {
		http.Error(w, "body not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var bodyFilter *galaxy.BodyID
	if v := q.Get("body"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid body id", http.StatusBadRequest)
			return
		}
		b := galaxy.BodyID(id)
		bodyFilter = &b
	}
	var resFilter *galaxy.Resource
	if v := q.Get("resource"); v != "" {
		res, err := galaxy.ParseResource(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resFilter = &res
	}
	includeAll := q.Get("all") == "true"

	var tick uint64
	result := []priceView{}
	s.Sim.View(func(sim *engine.Simulation) {
		if sim.Prices == nil {
			return
		}
		tick = sim.Prices.Tick
		for _, p := range sim.Prices.All() {
			if bodyFilter != nil && p.Body != *bodyFilter {
				continue
			}
			if resFilter != nil && p.Resource != *resFilter {
				continue
			}
			if !p.Tradable && !includeAll {
				continue
			}
			result = append(result, viewPrice(p))
		}
	})
	writeJSON(w, map[string]any{"tick": tick, "prices": result})
}

type agentSummary struct {
	ID       agents.AgentID `json:"id"`
	Kind     string         `json:"kind"`
	Home     galaxy.BodyID  `json:"home"`
	Owner    string         `json:"owner"`
	Location galaxy.BodyID  `json:"location"`
	State    string         `json:"state,omitempty"`
	Target   *targetView    `json:"target,omitempty"`
	Trips    int            `json:"trips_completed,omitempty"`
	Fuel     *float64       `json:"fuel,omitempty"`
	Halted   bool           `json:"halted,omitempty"`
	Route    *agents.Route  `json:"route,omitempty"`
	Cargo    *agents.Cargo  `json:"cargo,omitempty"`
}

type targetView struct {
	Body     galaxy.BodyID `json:"body_id"`
	Resource string        `json:"resource"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	state := r.URL.Query().Get("state")
	if kind != "" && kind != "mining" && kind != "trade" {
		http.Error(w, "kind must be mining or trade", http.StatusBadRequest)
		return
	}
	if state != "" {
		if _, err := agents.ParseMiningState(state); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	result := []agentSummary{}
	s.Sim.View(func(sim *engine.Simulation) {
		if kind == "" || kind == "mining" {
			for _, a := range sim.Agents.MiningAgents() {
				if state != "" && a.State.String() != state {
					continue
				}
				fuel := a.Fuel
				sum := agentSummary{
					ID:       a.ID,
					Kind:     "mining",
					Home:     a.Home,
					Owner:    a.Owner.String(),
					Location: a.Location,
					State:    a.State.String(),
					Fuel:     &fuel,
					Halted:   a.Halted,
				}
				if c := a.Contract; c != nil {
					sum.Target = &targetView{Body: c.Target.Body, Resource: c.Target.Resource.String()}
					sum.Trips = c.TripsCompleted
				}
				result = append(result, sum)
			}
		}
		if state == "" && (kind == "" || kind == "trade") {
			for _, t := range sim.Agents.TradeAgents() {
				result = append(result, agentSummary{
					ID:       t.ID,
					Kind:     "trade",
					Home:     t.Home,
					Owner:    t.Owner.String(),
					Location: t.Location,
					Route:    t.Route,
					Cargo:    t.Cargo,
				})
			}
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	type accountView struct {
		Body    galaxy.BodyID              `json:"body_id"`
		Balance decimal.Decimal            `json:"balance"`
		Income  map[string]decimal.Decimal `json:"income"`
		Expense map[string]decimal.Decimal `json:"expense"`
	}

	var (
		total    decimal.Decimal
		accounts []accountView
	)
	s.Sim.View(func(sim *engine.Simulation) {
		total = sim.Treasury.Total()
		for _, a := range sim.Treasury.Accounts() {
			v := accountView{
				Body:    a.Body,
				Balance: a.Balance,
				Income:  make(map[string]decimal.Decimal, len(a.Income)),
				Expense: make(map[string]decimal.Decimal, len(a.Expense)),
			}
			for k, amt := range a.Income {
				v.Income[k.String()] = amt
			}
			for k, amt := range a.Expense {
				v.Expense[k.String()] = amt
			}
			accounts = append(accounts, v)
		}
	})
	writeJSON(w, map[string]any{"total": total, "accounts": accounts})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 1000)
	}
	category := r.URL.Query().Get("category")

	if r.URL.Query().Get("history") == "true" && s.DB != nil {
		events, err := s.DB.RecentEvents(limit)
		if err != nil {
			slog.Error("failed to read event history", "error", err)
			http.Error(w, "event history unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}

	result := []engine.Event{}
	s.Sim.View(func(sim *engine.Simulation) {
		// Newest first.
		for i := len(sim.Events) - 1; i >= 0 && len(result) < limit; i-- {
			e := sim.Events[i]
			if category != "" && e.Category != category {
				continue
			}
			result = append(result, e)
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "no engine attached", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		if err := s.Eng.SetSpeed(req.Speed); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleIntervention queues an external event for the next tick.
func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Type       string  `json:"type"` // "destroy", "refuel", "population"
		AgentID    uint64  `json:"agent_id"`
		BodyID     uint64  `json:"body_id"`
		Population float64 `json:"population"`
		Reason     string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var cmd engine.Command
	switch req.Type {
	case "destroy":
		reason := req.Reason
		if reason == "" {
			reason = "admin"
		}
		cmd = engine.DestroyAgent{ID: agents.AgentID(req.AgentID), Reason: reason}
	case "refuel":
		cmd = engine.RefuelAgent{ID: agents.AgentID(req.AgentID)}
	case "population":
		if req.Population < 0 {
			http.Error(w, "population must not be negative", http.StatusBadRequest)
			return
		}
		cmd = engine.SetPopulation{Body: galaxy.BodyID(req.BodyID), Population: req.Population}
	default:
		http.Error(w, fmt.Sprintf("unknown intervention type %q", req.Type), http.StatusBadRequest)
		return
	}

	s.Sim.Enqueue(cmd)
	slog.Info("intervention queued", "type", req.Type, "agent", req.AgentID, "body", req.BodyID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"queued": req.Type, "tick": s.Sim.CurrentTick() + 1})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response", "error", err)
	}
}
