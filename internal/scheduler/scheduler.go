package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"prophetagent/internal/config"
	"prophetagent/internal/execution"
	"prophetagent/internal/market"
	"prophetagent/internal/performance"
	"prophetagent/internal/trader"
)

// Scheduler drives one agent on one platform: list, select, answer, size,
// place.
type Scheduler struct {
	agent    *trader.Agent
	platform market.Platform
	lister   trader.MarketLister
	executor *execution.Executor
	ledger   *execution.Ledger
	tracker  *performance.Tracker
	cfg      config.ScheduleConfig
	newRunID func() string
}

// New creates a Scheduler. ledger and tracker may be nil, in which case runs
// are not recorded or reported.
func New(
	agent *trader.Agent,
	platform market.Platform,
	lister trader.MarketLister,
	executor *execution.Executor,
	ledger *execution.Ledger,
	tracker *performance.Tracker,
	cfg config.ScheduleConfig,
) *Scheduler {
	return &Scheduler{
		agent:    agent,
		platform: platform,
		lister:   lister,
		executor: executor,
		ledger:   ledger,
		tracker:  tracker,
		cfg:      cfg,
		newRunID: uuid.NewString,
	}
}

// Run executes a cycle immediately and then one per run interval until ctx is
// cancelled. Failed cycles are logged and retried on the next tick, except
// for errors that indicate misconfiguration.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting",
		"agent", s.agent.Variant.Name,
		"platform", s.platform,
		"run_interval", s.cfg.RunInterval.Duration,
	)

	if err := s.cycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.RunInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := s.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) error {
	_, err := s.RunOnce(ctx)
	if err != nil {
		if fatal(err) || ctx.Err() != nil {
			return err
		}
		slog.Error("run failed", "error", err)
	}
	s.report(ctx)
	return nil
}

func (s *Scheduler) report(ctx context.Context) {
	if s.tracker == nil {
		return
	}
	report, err := s.tracker.Generate(ctx)
	if err != nil {
		slog.Error("ledger report failed", "error", err)
		return
	}
	performance.LogReport(report)
}

func fatal(err error) bool {
	return errors.Is(err, market.ErrUnknownPlatform)
}

// RunOnce performs a single agent run and returns its statistics.
func (s *Scheduler) RunOnce(ctx context.Context) (execution.RunStats, error) {
	runID := s.newRunID()
	log := slog.With("run_id", runID, "agent", s.agent.Variant.Name, "platform", s.platform)
	log.Info("starting run", "model", s.agent.Variant.Model)

	if s.ledger != nil {
		if err := s.ledger.StartRun(ctx, runID, s.agent.Variant.Name, s.agent.Variant.Model, s.platform); err != nil {
			return execution.RunStats{}, err
		}
	}

	stats, err := s.run(ctx, runID, log)
	stats.Err = err

	if s.ledger != nil {
		// The run context may already be cancelled; record the outcome anyway.
		if ferr := s.ledger.FinishRun(context.WithoutCancel(ctx), runID, stats); ferr != nil {
			log.Error("failed to record run", "error", ferr)
		}
	}

	log.Info("run complete",
		"candidates", stats.Candidates,
		"selected", stats.Selected,
		"placed", stats.Placed,
		"error", err,
	)
	return stats, err
}

func (s *Scheduler) run(ctx context.Context, runID string, log *slog.Logger) (execution.RunStats, error) {
	var stats execution.RunStats

	candidates, err := s.lister.ListMarkets(ctx, s.cfg.ListingLimit)
	if err != nil {
		return stats, fmt.Errorf("listing markets: %w", err)
	}
	stats.Candidates = len(candidates)

	selected, err := s.agent.Selector.SelectMarkets(ctx, candidates)
	if err != nil {
		return stats, err
	}
	stats.Selected = len(selected)
	log.Info("markets selected", "candidates", stats.Candidates, "selected", stats.Selected)

	for _, m := range selected {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		answer, err := s.agent.Resolver.ResolveAnswer(ctx, m)
		if err != nil {
			log.Error("answering market failed", "market", m.ID, "error", err)
			continue
		}
		if answer == nil {
			continue
		}

		amount, err := s.agent.Sizer.SizeStake(*answer, m)
		if err != nil {
			return stats, err
		}

		res := s.executor.Execute(ctx, runID, execution.Order{Market: m, Answer: *answer, Amount: amount})
		if res.Success {
			stats.Placed++
		} else if fatal(res.Err) {
			return stats, res.Err
		}
	}
	return stats, nil
}
