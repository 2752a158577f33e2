package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonnyspicer/mango"

	"prophetagent/internal/market"
)

// ErrPlacementUnsupported is returned by platforms the agent can select and
// size for but cannot place orders on.
var ErrPlacementUnsupported = errors.New("bet placement not supported on this platform")

// maxConsecutiveFailures after which a market is skipped for the process lifetime.
const maxConsecutiveFailures = 3

// Placer submits one bet to a platform.
type Placer interface {
	PlaceBet(ctx context.Context, m market.Market, amount market.BetAmount, decision bool) error
}

// PostBetFunc submits a bet request to Manifold.
type PostBetFunc func(req mango.PostBetRequest) error

// ManifoldPlacer places market orders through the Manifold API.
type ManifoldPlacer struct {
	post PostBetFunc
}

func NewManifoldPlacer(client *mango.Client) *ManifoldPlacer {
	return &ManifoldPlacer{post: func(req mango.PostBetRequest) error {
		_, err := client.PostBet(req)
		return err
	}}
}

// NewManifoldPlacerFunc builds a placer around an arbitrary post function.
func NewManifoldPlacerFunc(post PostBetFunc) *ManifoldPlacer {
	return &ManifoldPlacer{post: post}
}

func (p *ManifoldPlacer) PlaceBet(ctx context.Context, m market.Market, amount market.BetAmount, decision bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.post(mango.PostBetRequest{
		Amount:     amount.Amount,
		ContractId: m.ID,
		Outcome:    market.Answer{Decision: decision}.Outcome(),
	})
	if err != nil {
		return fmt.Errorf("posting manifold bet on %s: %w", m.ID, err)
	}
	return nil
}

// OmenPlacer stands in for on-chain order execution, which this agent does
// not implement. Use dry-run mode on Omen.
type OmenPlacer struct{}

func (OmenPlacer) PlaceBet(_ context.Context, m market.Market, _ market.BetAmount, _ bool) error {
	return fmt.Errorf("%w: omen market %s", ErrPlacementUnsupported, m.ID)
}

// Order is a sized, answered market ready to place.
type Order struct {
	Market market.Market
	Answer market.Answer
	Amount market.BetAmount
}

// Result records what happened when an order was executed.
type Result struct {
	Order   Order
	Success bool
	Err     error
}

// Executor places orders and records them in the ledger.
type Executor struct {
	placers    map[market.Platform]Placer
	ledger     *Ledger
	dryRun     bool
	failedBets map[string]int // "platform:marketID" -> consecutive failure count
	now        func() time.Time
}

func NewExecutor(placers map[market.Platform]Placer, ledger *Ledger, dryRun bool) *Executor {
	return &Executor{
		placers:    placers,
		ledger:     ledger,
		dryRun:     dryRun,
		failedBets: make(map[string]int),
		now:        time.Now,
	}
}

// Execute places a single order. In dry-run mode nothing is sent to the
// platform but the bet is still recorded.
func (e *Executor) Execute(ctx context.Context, runID string, o Order) Result {
	key := o.Market.Platform.String() + ":" + o.Market.ID
	if e.failedBets[key] >= maxConsecutiveFailures {
		slog.Info("skipping repeatedly failed bet", "market", o.Market.ID)
		return Result{Order: o, Err: fmt.Errorf("skipped: failed %d times", e.failedBets[key])}
	}

	slog.Info("placing bet",
		"platform", o.Market.Platform,
		"market", o.Market.ID,
		"question", o.Market.Question,
		"outcome", o.Answer.Outcome(),
		"amount", o.Amount.Amount,
		"currency", o.Amount.Currency,
		"dry_run", e.dryRun,
	)

	if !e.dryRun {
		placer, ok := e.placers[o.Market.Platform]
		if !ok {
			return Result{Order: o, Err: fmt.Errorf("%w: %v", market.ErrUnknownPlatform, o.Market.Platform)}
		}
		if err := placer.PlaceBet(ctx, o.Market, o.Amount, o.Answer.Decision); err != nil {
			if permanentFailure(err) {
				e.failedBets[key] = 100
				slog.Warn("bet permanently blacklisted", "market", o.Market.ID, "error", err)
			} else {
				e.failedBets[key]++
			}
			slog.Error("bet failed",
				"market", o.Market.ID,
				"error", err,
				"consecutive_failures", e.failedBets[key],
			)
			return Result{Order: o, Err: err}
		}
		delete(e.failedBets, key)
	}

	if e.ledger != nil {
		rec := BetRecord{
			RunID:    runID,
			Market:   o.Market,
			Answer:   o.Answer,
			Amount:   o.Amount,
			DryRun:   e.dryRun,
			PlacedAt: e.now(),
		}
		if err := e.ledger.RecordBet(ctx, rec); err != nil {
			slog.Error("failed to record bet in ledger", "market", o.Market.ID, "error", err)
		}
	}

	slog.Info("bet placed", "market", o.Market.ID, "outcome", o.Answer.Outcome(), "amount", o.Amount.String())
	return Result{Order: o, Success: true}
}

// permanentFailure reports errors that will not go away on retry, such as
// closed markets or unsupported platforms.
func permanentFailure(err error) bool {
	if errors.Is(err, ErrPlacementUnsupported) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "resolved") || strings.Contains(msg, "status 403") || strings.Contains(msg, "status 404")
}
