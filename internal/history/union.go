package history

import (
	"context"
	"time"
)

// Source is anything that can report recently bet-on questions.
type Source interface {
	RecentQuestions(ctx context.Context, since time.Time) (map[string]struct{}, error)
}

// Union merges the questions of several sources. Any source failing fails
// the whole lookup.
type Union []Source

func (u Union) RecentQuestions(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, src := range u {
		qs, err := src.RecentQuestions(ctx, since)
		if err != nil {
			return nil, err
		}
		for q := range qs {
			out[q] = struct{}{}
		}
	}
	return out, nil
}
