package performance

import (
	"context"
	"database/sql"
	"fmt"
)

// Tracker computes betting activity metrics from the bet ledger.
type Tracker struct {
	db *sql.DB
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Report summarises everything recorded in the ledger.
type Report struct {
	TotalRuns  int
	FailedRuns int
	TotalBets  int
	DryRunBets int
	Staked     map[string]float64 // currency -> total amount
	AgentStats map[string]AgentStats
}

// AgentStats contains per-agent activity.
type AgentStats struct {
	BetCount      int
	YesShare      float64
	AvgConfidence float64
	// AvgEdge is the mean absolute gap between model and market probability.
	AvgEdge float64
}

// Generate computes the full report.
func (t *Tracker) Generate(ctx context.Context) (*Report, error) {
	r := &Report{
		Staked:     make(map[string]float64),
		AgentStats: make(map[string]AgentStats),
	}

	if err := t.computeRuns(ctx, r); err != nil {
		return nil, fmt.Errorf("computing run stats: %w", err)
	}
	if err := t.computeStakes(ctx, r); err != nil {
		return nil, fmt.Errorf("computing stakes: %w", err)
	}
	if err := t.computeAgentStats(ctx, r); err != nil {
		return nil, fmt.Errorf("computing agent stats: %w", err)
	}

	return r, nil
}

func (t *Tracker) computeRuns(ctx context.Context, r *Report) error {
	row := t.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM runs`)
	if err := row.Scan(&r.TotalRuns, &r.FailedRuns); err != nil {
		return err
	}

	row = t.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(dry_run), 0) FROM bot_bets`)
	return row.Scan(&r.TotalBets, &r.DryRunBets)
}

func (t *Tracker) computeStakes(ctx context.Context, r *Report) error {
	rows, err := t.db.QueryContext(ctx, `
		SELECT currency, COALESCE(SUM(amount), 0)
		FROM bot_bets WHERE dry_run = 0 GROUP BY currency`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var currency string
		var total float64
		if err := rows.Scan(&currency, &total); err != nil {
			return err
		}
		r.Staked[currency] = total
	}
	return rows.Err()
}

func (t *Tracker) computeAgentStats(ctx context.Context, r *Report) error {
	rows, err := t.db.QueryContext(ctx, `
		SELECT runs.agent, COUNT(*),
		       COALESCE(AVG(CASE WHEN b.outcome = 'YES' THEN 1.0 ELSE 0.0 END), 0),
		       COALESCE(AVG(b.confidence), 0),
		       COALESCE(AVG(ABS(b.model_p_yes - b.market_p_yes)), 0)
		FROM bot_bets b JOIN runs ON runs.id = b.run_id
		GROUP BY runs.agent`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var stats AgentStats
		if err := rows.Scan(&name, &stats.BetCount, &stats.YesShare, &stats.AvgConfidence, &stats.AvgEdge); err != nil {
			return err
		}
		r.AgentStats[name] = stats
	}
	return rows.Err()
}
