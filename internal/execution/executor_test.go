package execution

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jonnyspicer/mango"

	"prophetagent/internal/db"
	"prophetagent/internal/market"
)

func openLedger(t *testing.T) (*Ledger, *sql.DB) {
	t.Helper()
	database, err := db.Open(db.InMemory)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}
	return NewLedger(database), database
}

type fakePlacer struct {
	calls int
	err   error
}

func (f *fakePlacer) PlaceBet(context.Context, market.Market, market.BetAmount, bool) error {
	f.calls++
	return f.err
}

func testOrder() Order {
	return Order{
		Market: market.Market{
			ID:        "m1",
			Question:  "Will it rain?",
			PYes:      0.3,
			Currency:  market.Mana,
			Platform:  market.PlatformManifold,
			CloseTime: time.Unix(1700000000, 0),
			URL:       "https://manifold.markets/x/rain",
		},
		Answer: market.Answer{Decision: true, PYes: 0.7, Confidence: 0.6},
		Amount: market.BetAmount{Amount: 3, Currency: market.Mana},
	}
}

func countBets(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM bot_bets`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestExecute_PlacesAndRecords(t *testing.T) {
	ctx := context.Background()
	ledger, database := openLedger(t)
	if err := ledger.StartRun(ctx, "run-1", "prophet_gpt3", "gpt-3.5-turbo-0125", market.PlatformManifold); err != nil {
		t.Fatal(err)
	}

	placer := &fakePlacer{}
	exec := NewExecutor(map[market.Platform]Placer{market.PlatformManifold: placer}, ledger, false)

	res := exec.Execute(ctx, "run-1", testOrder())
	if !res.Success || res.Err != nil {
		t.Fatalf("expected success, got %+v", res)
	}
	if placer.calls != 1 {
		t.Errorf("expected 1 placement, got %d", placer.calls)
	}

	var outcome, currency string
	var amount float64
	var dryRun int
	err := database.QueryRow(`SELECT outcome, amount, currency, dry_run FROM bot_bets WHERE run_id = ?`, "run-1").
		Scan(&outcome, &amount, &currency, &dryRun)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != "YES" || amount != 3 || currency != "M" || dryRun != 0 {
		t.Errorf("unexpected row: %s %v %s %d", outcome, amount, currency, dryRun)
	}
}

func TestExecute_DryRunSkipsPlacer(t *testing.T) {
	ctx := context.Background()
	ledger, database := openLedger(t)
	if err := ledger.StartRun(ctx, "run-1", "prophet_gpt3", "m", market.PlatformOmen); err != nil {
		t.Fatal(err)
	}

	o := testOrder()
	o.Market.Platform = market.PlatformOmen
	exec := NewExecutor(map[market.Platform]Placer{market.PlatformOmen: OmenPlacer{}}, ledger, true)

	if res := exec.Execute(ctx, "run-1", o); !res.Success {
		t.Fatalf("dry run should succeed, got %v", res.Err)
	}
	if n := countBets(t, database); n != 1 {
		t.Errorf("expected dry-run bet recorded, got %d rows", n)
	}
}

func TestExecute_FailureBlacklists(t *testing.T) {
	ctx := context.Background()
	placer := &fakePlacer{err: errors.New("api status 500")}
	exec := NewExecutor(map[market.Platform]Placer{market.PlatformManifold: placer}, nil, false)

	for i := 0; i < maxConsecutiveFailures+2; i++ {
		if res := exec.Execute(ctx, "run", testOrder()); res.Success {
			t.Fatal("expected failure")
		}
	}
	if placer.calls != maxConsecutiveFailures {
		t.Errorf("expected %d attempts before skipping, got %d", maxConsecutiveFailures, placer.calls)
	}
}

func TestExecute_UnsupportedIsPermanent(t *testing.T) {
	o := testOrder()
	o.Market.Platform = market.PlatformOmen
	exec := NewExecutor(map[market.Platform]Placer{market.PlatformOmen: OmenPlacer{}}, nil, false)

	res := exec.Execute(context.Background(), "run", o)
	if !errors.Is(res.Err, ErrPlacementUnsupported) {
		t.Fatalf("expected ErrPlacementUnsupported, got %v", res.Err)
	}
	if exec.failedBets["omen:m1"] < maxConsecutiveFailures {
		t.Error("expected market blacklisted after unsupported placement")
	}
}

func TestExecute_MissingPlacer(t *testing.T) {
	exec := NewExecutor(nil, nil, false)
	res := exec.Execute(context.Background(), "run", testOrder())
	if !errors.Is(res.Err, market.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", res.Err)
	}
}

func TestManifoldPlacer_BuildsRequest(t *testing.T) {
	var got mango.PostBetRequest
	p := NewManifoldPlacerFunc(func(req mango.PostBetRequest) error {
		got = req
		return nil
	})
	o := testOrder()
	if err := p.PlaceBet(context.Background(), o.Market, o.Amount, false); err != nil {
		t.Fatal(err)
	}
	if got.ContractId != "m1" || got.Outcome != "NO" || got.Amount != 3 {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestLedger_RunAndHistory(t *testing.T) {
	ctx := context.Background()
	ledger, database := openLedger(t)
	if err := ledger.StartRun(ctx, "run-1", "a", "m", market.PlatformManifold); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	old := testOrder()
	old.Market.ID = "m0"
	old.Market.Question = "Old question?"
	recs := []BetRecord{
		{RunID: "run-1", Market: old.Market, Answer: old.Answer, Amount: old.Amount, PlacedAt: now.Add(-48 * time.Hour)},
		{RunID: "run-1", Market: testOrder().Market, Answer: testOrder().Answer, Amount: testOrder().Amount, DryRun: true, PlacedAt: now.Add(-time.Hour)},
	}
	for _, r := range recs {
		if err := ledger.RecordBet(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	qs, err := ledger.History(market.PlatformManifold).RecentQuestions(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := qs["Will it rain?"]; !ok || len(qs) != 1 {
		t.Errorf("expected only the recent question, got %v", qs)
	}

	omen, err := ledger.History(market.PlatformOmen).RecentQuestions(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(omen) != 0 {
		t.Errorf("expected no omen questions, got %v", omen)
	}

	if err := ledger.FinishRun(ctx, "run-1", RunStats{Candidates: 10, Selected: 2, Placed: 2, Err: errors.New("boom")}); err != nil {
		t.Fatal(err)
	}
	var placed int
	var runErr sql.NullString
	if err := database.QueryRow(`SELECT placed, error FROM runs WHERE id = 'run-1'`).Scan(&placed, &runErr); err != nil {
		t.Fatal(err)
	}
	if placed != 2 || runErr.String != "boom" {
		t.Errorf("unexpected run row: placed=%d error=%v", placed, runErr)
	}
}
