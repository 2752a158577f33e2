package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"prophetagent/internal/market"
)

// Selector filters candidate markets down to the ones worth predicting.
type Selector struct {
	history    map[market.Platform]HistoryProvider
	oracle     Oracle
	maxMarkets int
	now        func() time.Time
}

// NewSelector creates a Selector. history must have an entry for every
// platform the candidates can come from.
func NewSelector(history map[market.Platform]HistoryProvider, oracle Oracle, maxMarkets int) *Selector {
	return &Selector{
		history:    history,
		oracle:     oracle,
		maxMarkets: maxMarkets,
		now:        time.Now,
	}
}

// SelectMarkets returns at most maxMarkets candidates, in input order, that
// were not bet on within RecentWindow and that the oracle judges predictable.
// Bet history is fetched at most once per platform per call.
func (s *Selector) SelectMarkets(ctx context.Context, candidates []market.Market) ([]market.Market, error) {
	picked := make([]market.Market, 0, s.maxMarkets)
	if s.maxMarkets <= 0 {
		return picked, nil
	}

	since := s.now().Add(-RecentWindow)
	recent := make(map[market.Platform]map[string]struct{})

	for _, m := range candidates {
		slog.Info("checking recent bets", "platform", m.Platform, "question", m.Question)
		betted, err := s.recentlyBetted(ctx, m, since, recent)
		if err != nil {
			return nil, err
		}
		if betted {
			slog.Info("recently bet, skipping", "question", m.Question)
			continue
		}

		slog.Info("verifying market predictability", "question", m.Question)
		ok, err := s.oracle.IsPredictable(ctx, m.Question)
		if err != nil {
			return nil, fmt.Errorf("checking predictability of %q: %w", m.Question, err)
		}
		if !ok {
			slog.Info("market not predictable, skipping", "question", m.Question)
			continue
		}

		slog.Info("market is predictable", "question", m.Question)
		picked = append(picked, m)
		if len(picked) >= s.maxMarkets {
			break
		}
	}
	return picked, nil
}

func (s *Selector) recentlyBetted(ctx context.Context, m market.Market, since time.Time, recent map[market.Platform]map[string]struct{}) (bool, error) {
	questions, ok := recent[m.Platform]
	if !ok {
		switch m.Platform {
		case market.PlatformManifold, market.PlatformOmen:
		default:
			return false, fmt.Errorf("%w: %v (market %s)", market.ErrUnknownPlatform, m.Platform, m.ID)
		}
		provider, found := s.history[m.Platform]
		if !found {
			return false, fmt.Errorf("no bet history provider configured for %v", m.Platform)
		}

		var err error
		questions, err = provider.RecentQuestions(ctx, since)
		if err != nil {
			return false, fmt.Errorf("loading %v bet history: %w", m.Platform, err)
		}
		recent[m.Platform] = questions
		slog.Info("loaded recent bets", "platform", m.Platform, "questions", len(questions))
	}

	_, betted := questions[m.Question]
	return betted, nil
}
