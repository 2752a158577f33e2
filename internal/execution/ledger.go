package execution

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"prophetagent/internal/market"
)

// Ledger records runs and placed bets in SQLite.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RunStats summarises one scheduler run.
type RunStats struct {
	Candidates int
	Selected   int
	Placed     int
	Err        error
}

func (l *Ledger) StartRun(ctx context.Context, runID, agent, model string, platform market.Platform) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, agent, model, platform) VALUES (?, ?, ?, ?)`,
		runID, agent, model, platform.String(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, runID string, stats RunStats) error {
	var errText *string
	if stats.Err != nil {
		s := stats.Err.Error()
		errText = &s
	}
	_, err := l.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = datetime('now'), candidates = ?, selected = ?, placed = ?, error = ?
		WHERE id = ?`,
		stats.Candidates, stats.Selected, stats.Placed, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	return nil
}

// EnsureMarket inserts a market if it is not yet known.
func (l *Ledger) EnsureMarket(ctx context.Context, m market.Market) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO markets (id, platform, question, url, close_time)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Platform.String(), m.Question, m.URL, m.CloseTime.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting market: %w", err)
	}
	return nil
}

// BetRecord is one row of the bet ledger.
type BetRecord struct {
	RunID    string
	Market   market.Market
	Answer   market.Answer
	Amount   market.BetAmount
	DryRun   bool
	PlacedAt time.Time
}

func (l *Ledger) RecordBet(ctx context.Context, rec BetRecord) error {
	if err := l.EnsureMarket(ctx, rec.Market); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO bot_bets (run_id, platform, market_id, question, outcome, amount, currency, market_p_yes, model_p_yes, confidence, dry_run, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Market.Platform.String(),
		rec.Market.ID,
		rec.Market.Question,
		rec.Answer.Outcome(),
		rec.Amount.Amount,
		string(rec.Amount.Currency),
		rec.Market.PYes,
		rec.Answer.PYes,
		rec.Answer.Confidence,
		boolToInt(rec.DryRun),
		rec.PlacedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting bot_bet: %w", err)
	}
	return nil
}

// History exposes the ledger's bets on one platform as a bet history source.
// Dry runs never reach the platform, so this is what keeps them from
// re-selecting the same question every run.
func (l *Ledger) History(platform market.Platform) *LedgerHistory {
	return &LedgerHistory{ledger: l, platform: platform}
}

type LedgerHistory struct {
	ledger   *Ledger
	platform market.Platform
}

func (h *LedgerHistory) RecentQuestions(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	rows, err := h.ledger.db.QueryContext(ctx, `
		SELECT DISTINCT question FROM bot_bets
		WHERE platform = ? AND placed_at >= ?`,
		h.platform.String(), since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying ledger bets: %w", err)
	}
	defer rows.Close()

	questions := make(map[string]struct{})
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scanning ledger bet: %w", err)
		}
		questions[q] = struct{}{}
	}
	return questions, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
