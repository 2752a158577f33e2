package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonnyspicer/mango"
)

// ManifoldSearcher is the subset of the mango client used for listing.
type ManifoldSearcher interface {
	SearchMarkets(req mango.SearchMarketsRequest) (*[]mango.FullMarket, error)
}

// ManifoldLister fetches open binary Manifold markets.
type ManifoldLister struct {
	client ManifoldSearcher
	cache  *QuestionCache
}

// NewManifoldLister creates a lister. cache may be nil; when set, listed
// questions are seeded into it so history lookups can skip API calls.
func NewManifoldLister(client ManifoldSearcher, cache *QuestionCache) *ManifoldLister {
	return &ManifoldLister{client: client, cache: cache}
}

// ListMarkets returns open binary markets, closing soonest first.
func (l *ManifoldLister) ListMarkets(ctx context.Context, limit int) ([]Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	markets, err := l.client.SearchMarkets(mango.SearchMarketsRequest{
		Filter:       "open",
		ContractType: "BINARY",
		Sort:         "close-date",
		Limit:        int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("searching manifold markets: %w", err)
	}
	if markets == nil {
		return nil, nil
	}

	result := make([]Market, 0, len(*markets))
	for _, m := range *markets {
		if m.IsResolved || m.OutcomeType != mango.Binary {
			continue
		}
		result = append(result, fromManifold(m))
	}
	if l.cache != nil {
		l.cache.SetAll(result)
	}
	slog.Info("listed manifold markets", "count", len(result))
	return result, nil
}

func fromManifold(m mango.FullMarket) Market {
	return Market{
		ID:        m.Id,
		Question:  m.Question,
		PYes:      m.Probability,
		Liquidity: m.TotalLiquidity,
		Currency:  Mana,
		Platform:  PlatformManifold,
		CloseTime: time.UnixMilli(m.CloseTime),
		URL:       m.Url,
	}
}
