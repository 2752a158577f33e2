package trader

import (
	"context"
	"fmt"
	"log/slog"

	"prophetagent/internal/market"
)

// Resolver asks the oracle for a final answer on a market.
type Resolver struct {
	oracle Oracle
}

func NewResolver(oracle Oracle) *Resolver {
	return &Resolver{oracle: oracle}
}

// ResolveAnswer returns the oracle's answer for m, or nil when the oracle gave
// no directional prediction and the market should be skipped. There are no
// retries here.
func (r *Resolver) ResolveAnswer(ctx context.Context, m market.Market) (*market.Answer, error) {
	prediction, err := r.oracle.Predict(ctx, m.Question)
	if err != nil {
		return nil, fmt.Errorf("predicting %q: %w", m.Question, err)
	}
	if prediction.Outcome == nil {
		slog.Error("prediction failed", "market", m.ID, "question", m.Question)
		return nil, nil
	}

	slog.Info("answering market",
		"question", m.Question,
		"decision", prediction.Outcome.Outcome(),
		"p_yes", prediction.Outcome.PYes,
		"confidence", prediction.Outcome.Confidence,
	)
	return prediction.Outcome, nil
}
