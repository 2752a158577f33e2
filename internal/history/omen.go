package history

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"prophetagent/internal/market"
)

const omenPageSize = 1000

const omenTradesQuery = `
	query Trades($creator: String!, $since: BigInt!, $first: Int!, $skip: Int!) {
		fpmmTrades(
			first: $first
			skip: $skip
			orderBy: creationTimestamp
			orderDirection: desc
			where: { creator: $creator, creationTimestamp_gte: $since }
		) {
			title
			creationTimestamp
			fpmm {
				id
			}
		}
	}
`

type omenTrade struct {
	Title             string `json:"title"`
	CreationTimestamp string `json:"creationTimestamp"`
	FPMM              struct {
		ID string `json:"id"`
	} `json:"fpmm"`
}

// Omen reads trades made by a public address from the Omen subgraph.
type Omen struct {
	graph   market.GraphQuerier
	address common.Address
}

func NewOmen(graph market.GraphQuerier, address common.Address) *Omen {
	return &Omen{graph: graph, address: address}
}

// RecentQuestions returns the titles of markets traded since since.
func (h *Omen) RecentQuestions(ctx context.Context, since time.Time) (map[string]struct{}, error) {
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

func (h *Omen) RecentBets(ctx context.Context, since time.Time) ([]market.Bet, error) {
	// The subgraph stores addresses lowercased.
	creator := strings.ToLower(h.address.Hex())

	var result []market.Bet
	for skip := 0; ; skip += omenPageSize {
		var resp struct {
			Trades []omenTrade `json:"fpmmTrades"`
		}
		vars := map[string]any{
			"creator": creator,
			"since":   strconv.FormatInt(since.Unix(), 10),
			"first":   omenPageSize,
			"skip":    skip,
		}
		if err := h.graph.Query(ctx, omenTradesQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("getting omen trades for %s: %w", creator, err)
		}

		for _, tr := range resp.Trades {
			// The query already filters on since, so a trade with an
			// unreadable timestamp still counts as recent.
			createdAt := since
			if ts, err := strconv.ParseInt(tr.CreationTimestamp, 10, 64); err == nil {
				createdAt = time.Unix(ts, 0)
			} else {
				slog.Warn("unparseable omen trade timestamp",
					"market", tr.FPMM.ID,
					"timestamp", tr.CreationTimestamp,
					"error", err,
				)
			}
			result = append(result, market.Bet{
				MarketID:  tr.FPMM.ID,
				Question:  tr.Title,
				CreatedAt: createdAt,
			})
		}
		if len(resp.Trades) < omenPageSize {
			break
		}
	}

	slog.Debug("loaded omen bet history", "address", creator, "bets", len(result), "since", since)
	return result, nil
}
