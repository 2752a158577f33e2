// Package trader holds the betting policy: which markets to act on, what the
// answer is, and how much to stake.
package trader

import (
	"context"
	"time"

	"prophetagent/internal/market"
)

// RecentWindow is how far back bet history is checked to avoid betting on the
// same question twice.
const RecentWindow = 24 * time.Hour

// MarketLister lists candidate markets for one platform.
type MarketLister interface {
	ListMarkets(ctx context.Context, limit int) ([]market.Market, error)
}

// HistoryProvider reports the questions this agent bet on since a point in time.
type HistoryProvider interface {
	RecentQuestions(ctx context.Context, since time.Time) (map[string]struct{}, error)
}

// Oracle is the prediction model.
type Oracle interface {
	IsPredictable(ctx context.Context, question string) (bool, error)
	Predict(ctx context.Context, question string) (market.Prediction, error)
}
