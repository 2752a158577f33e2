// Package history answers "which questions did this agent bet on recently"
// for each supported platform.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonnyspicer/mango"

	"prophetagent/internal/market"
)

const manifoldPageSize = 1000

// ManifoldAPI is the subset of the mango client used for bet history.
type ManifoldAPI interface {
	GetAuthenticatedUser() (*mango.User, error)
	GetBets(req mango.GetBetsRequest) (*[]mango.Bet, error)
	GetMarketByID(id string) (*mango.FullMarket, error)
}

// Manifold reads the authenticated user's bets and resolves each one to its
// market question.
type Manifold struct {
	client ManifoldAPI
	cache  *market.QuestionCache
}

func NewManifold(client ManifoldAPI, cache *market.QuestionCache) *Manifold {
	if cache == nil {
		cache = market.NewQuestionCache(time.Hour)
	}
	return &Manifold{client: client, cache: cache}
}

// RecentQuestions returns the questions of markets bet on since since.
func (h *Manifold) RecentQuestions(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	bets, err := h.RecentBets(ctx, since)
	if err != nil {
		return nil, err
	}
	questions := make(map[string]struct{}, len(bets))
	for _, b := range bets {
		questions[b.Question] = struct{}{}
	}
	return questions, nil
}

// RecentBets pages through the user's bets, newest first, until it passes since.
func (h *Manifold) RecentBets(ctx context.Context, since time.Time) ([]market.Bet, error) {
	user, err := h.client.GetAuthenticatedUser()
	if err != nil {
		return nil, fmt.Errorf("getting authenticated manifold user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("authenticated manifold user returned nil")
	}

	sinceMs := since.UnixMilli()
	var result []market.Bet
	before := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := h.client.GetBets(mango.GetBetsRequest{
			UserId: user.Id,
			Before: before,
			Limit:  manifoldPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("getting manifold bets: %w", err)
		}
		if page == nil || len(*page) == 0 {
			break
		}

		done := false
		for _, b := range *page {
			if b.CreatedTime < sinceMs {
				done = true
				break
			}
			question, err := h.question(b.ContractId)
			if err != nil {
				return nil, err
			}
			result = append(result, market.Bet{
				MarketID:  b.ContractId,
				Question:  question,
				CreatedAt: time.UnixMilli(b.CreatedTime),
			})
		}
		if done || len(*page) < manifoldPageSize {
			break
		}
		before = (*page)[len(*page)-1].Id
	}

	slog.Debug("loaded manifold bet history", "user", user.Id, "bets", len(result), "since", since)
	return result, nil
}

func (h *Manifold) question(contractID string) (string, error) {
	if q, ok := h.cache.Get(contractID); ok {
		return q, nil
	}
	m, err := h.client.GetMarketByID(contractID)
	if err != nil {
		return "", fmt.Errorf("getting manifold market %s: %w", contractID, err)
	}
	if m == nil {
		return "", fmt.Errorf("manifold market %s not found", contractID)
	}
	h.cache.Set(contractID, m.Question)
	return m.Question, nil
}
