package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/treasury"
)

// StepTick advances the economy by one day in fixed order:
//
//  1. demand refresh
//  2. pricing refresh (the snapshot is frozen here)
//  3. mining controller
//  4. trade controller
//  5. civilian production planner
//  6. treasury tick close
//
// Month-boundary work folds into steps 1 and 6.
//
// A tick either applies in full or not at all: cancellation is observed
// only before the first mutation.
func (s *Simulation) StepTick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	tick := s.LastTick + 1
	s.Treasury.BeginTick(tick)
	s.applyCommands()

	s.stepDemand(tick)
	s.Prices = s.Market.Snapshot(tick)

	if err := s.stepMining(ctx, tick); err != nil {
		return err
	}
	if err := s.stepTrade(ctx, tick); err != nil {
		return err
	}
	s.stepPlanner(tick)
	s.closeTreasury(tick)

	s.LastTick = tick
	return nil
}

// Run steps n ticks, stopping early if ctx is cancelled.
func (s *Simulation) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.StepTick(ctx); err != nil {
			return fmt.Errorf("tick %d: %w", s.CurrentTick()+1, err)
		}
	}
	return nil
}

// closeTreasury runs step 6: scheduled expenses, then the tick close. On a
// month boundary it also posts subsidies and reports the month.
func (s *Simulation) closeTreasury(tick uint64) {
	upkeep := treasury.Money(-s.Params.Treasury.StateFleetUpkeep)
	for _, a := range s.Agents.MiningAgents() {
		if a.Owner == agents.OwnerState && a.State != agents.StateSleeping {
			_ = s.Treasury.Post(treasury.KindUpkeep, upkeep, a.Home)
		}
	}
	for _, f := range s.Agents.TradeAgents() {
		if f.Owner == agents.OwnerState {
			_ = s.Treasury.Post(treasury.KindUpkeep, upkeep, f.Home)
		}
	}

	month := s.isMonthBoundary(tick)
	if month {
		subsidy := treasury.Money(-s.Params.Treasury.MonthlySubsidy)
		for _, b := range s.Galaxy.Bodies {
			if b.Inhabited() {
				_ = s.Treasury.Post(treasury.KindSubsidy, subsidy, b.ID)
			}
		}
	}

	s.Treasury.CloseTick()
	if !month {
		return
	}

	var income, expense decimal.Decimal
	for _, a := range s.Treasury.Accounts() {
		for _, v := range a.Income {
			income = income.Add(v)
		}
		for _, v := range a.Expense {
			expense = expense.Add(v)
		}
	}

	slog.Info("monthly report",
		"tick", tick,
		"time", SimTime(tick),
		"agents", s.Agents.Len(),
		"trips", s.Stats.TripsCompleted,
		"failed_trips", s.Stats.TripsFailed,
		"halts", s.Stats.Halts,
		"contracts", s.Stats.ContractsSigned,
		"trades", s.Stats.TradesDone,
		"commissioned", s.Stats.Commissioned,
		"shortages", s.Stats.Shortages,
		"extracted", humanize.Commaf(float64(int64(s.Stats.Extracted))),
		"consumed", humanize.Commaf(float64(int64(s.Stats.Consumed))),
		"cargo_lost", humanize.Commaf(float64(int64(s.Stats.CargoLost))),
		"treasury_income", humanize.Commaf(income.InexactFloat64()),
		"treasury_expense", humanize.Commaf(expense.InexactFloat64()),
		"treasury_total", humanize.Commaf(s.Treasury.Total().Round(0).InexactFloat64()),
	)

	s.Treasury.ResetPeriod()
	s.Stats = SimStats{}
}
