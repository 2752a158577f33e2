package market

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// GraphQuerier runs a GraphQL query and decodes its data into out.
type GraphQuerier interface {
	Query(ctx context.Context, query string, variables map[string]any, out any) error
}

// Subgraph amounts are in wei; xDai has 18 decimals.
const weiDecimals = 18

const openOmenMarketsQuery = `
	query OpenMarkets($first: Int!, $now: BigInt!) {
		fixedProductMarketMakers(
			first: $first
			orderBy: openingTimestamp
			orderDirection: asc
			where: { openingTimestamp_gt: $now, isPendingArbitration: false, outcomes: ["Yes", "No"] }
		) {
			id
			title
			outcomes
			outcomeTokenMarginalPrices
			liquidityMeasure
			openingTimestamp
		}
	}
`

type omenFPMM struct {
	ID                         string   `json:"id"`
	Title                      string   `json:"title"`
	Outcomes                   []string `json:"outcomes"`
	OutcomeTokenMarginalPrices []string `json:"outcomeTokenMarginalPrices"`
	LiquidityMeasure           string   `json:"liquidityMeasure"`
	OpeningTimestamp           string   `json:"openingTimestamp"`
}

// OmenLister fetches open Yes/No markets from the Omen subgraph.
type OmenLister struct {
	graph GraphQuerier
	now   func() time.Time
}

func NewOmenLister(graph GraphQuerier) *OmenLister {
	return &OmenLister{graph: graph, now: time.Now}
}

// ListMarkets returns open markets, closing soonest first. Markets whose
// prices cannot be parsed are skipped with a warning.
func (l *OmenLister) ListMarkets(ctx context.Context, limit int) ([]Market, error) {
	var resp struct {
		Markets []omenFPMM `json:"fixedProductMarketMakers"`
	}
	vars := map[string]any{
		"first": limit,
		"now":   strconv.FormatInt(l.now().Unix(), 10),
	}
	if err := l.graph.Query(ctx, openOmenMarketsQuery, vars, &resp); err != nil {
		return nil, fmt.Errorf("listing omen markets: %w", err)
	}

	result := make([]Market, 0, len(resp.Markets))
	for _, fpmm := range resp.Markets {
		m, err := fromOmen(fpmm)
		if err != nil {
			slog.Warn("skipping unparseable omen market", "id", fpmm.ID, "error", err)
			continue
		}
		result = append(result, m)
	}
	slog.Info("listed omen markets", "count", len(result))
	return result, nil
}

func fromOmen(f omenFPMM) (Market, error) {
	if len(f.Outcomes) != 2 || len(f.OutcomeTokenMarginalPrices) != 2 {
		return Market{}, fmt.Errorf("expected binary market, got %d outcomes", len(f.Outcomes))
	}
	yesIdx := 0
	if f.Outcomes[0] != "Yes" {
		yesIdx = 1
	}
	pYes, err := decimal.NewFromString(f.OutcomeTokenMarginalPrices[yesIdx])
	if err != nil {
		return Market{}, fmt.Errorf("parsing marginal price: %w", err)
	}

	liquidity := decimal.Zero
	if f.LiquidityMeasure != "" {
		wei, err := decimal.NewFromString(f.LiquidityMeasure)
		if err != nil {
			return Market{}, fmt.Errorf("parsing liquidity: %w", err)
		}
		liquidity = wei.Shift(-weiDecimals)
	}

	var closeTime time.Time
	if ts, err := strconv.ParseInt(f.OpeningTimestamp, 10, 64); err == nil {
		closeTime = time.Unix(ts, 0)
	}

	return Market{
		ID:        f.ID,
		Question:  f.Title,
		PYes:      pYes.InexactFloat64(),
		Liquidity: liquidity.InexactFloat64(),
		Currency:  XDai,
		Platform:  PlatformOmen,
		CloseTime: closeTime,
		URL:       "https://aiomen.eth.limo/#/" + f.ID,
	}, nil
}
