package market

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonnyspicer/mango"
)

func TestParsePlatform(t *testing.T) {
	cases := map[string]Platform{
		"manifold": PlatformManifold,
		" Omen ":   PlatformOmen,
		"MANIFOLD": PlatformManifold,
	}
	for in, want := range cases {
		got, err := ParsePlatform(in)
		if err != nil {
			t.Fatalf("ParsePlatform(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePlatform(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParsePlatform("polymarket"); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestMinimumBetToWin(t *testing.T) {
	m := Market{PYes: 0.5, Platform: PlatformManifold}
	if got := m.MinimumBetToWin(true, 1); got != 1 {
		t.Errorf("at even odds expected 1, got %f", got)
	}

	// YES at 0.8: profit per mana is 0.25, so 4 mana wins 1.
	m.PYes = 0.8
	if got := m.MinimumBetToWin(true, 1); got != 4 {
		t.Errorf("expected 4, got %f", got)
	}
	// NO at 0.8 costs 0.2, profit per mana is 4.
	if got := m.MinimumBetToWin(false, 1); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}

	m.PYes = 0.95
	if got := m.MinimumBetToWin(true, 1); got != 19 {
		t.Errorf("expected 19, got %f", got)
	}

	m.PYes = 1
	if got := m.MinimumBetToWin(true, 1); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf for a certain market, got %f", got)
	}
}

func TestTinyBetAmount(t *testing.T) {
	if got := (Market{Platform: PlatformManifold}).TinyBetAmount(); got.Amount != 1 || got.Currency != Mana {
		t.Errorf("unexpected manifold tiny bet: %v", got)
	}
	if got := (Market{Platform: PlatformOmen}).TinyBetAmount(); got.Amount != 0.00001 || got.Currency != XDai {
		t.Errorf("unexpected omen tiny bet: %v", got)
	}
}

func TestQuestionCache_Expiry(t *testing.T) {
	c := NewQuestionCache(time.Minute)
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("m1", "Will it rain?")
	c.SetAll([]Market{{ID: "m2", Question: "Will it snow?"}})

	if q, ok := c.Get("m1"); !ok || q != "Will it rain?" {
		t.Errorf("expected cached question, got %q %v", q, ok)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("m1"); ok {
		t.Error("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Errorf("expected 0 live entries, got %d", c.Len())
	}
}

type fakeSearcher struct {
	req     mango.SearchMarketsRequest
	markets []mango.FullMarket
}

func (f *fakeSearcher) SearchMarkets(req mango.SearchMarketsRequest) (*[]mango.FullMarket, error) {
	f.req = req
	return &f.markets, nil
}

func TestManifoldLister_ConvertsAndSeedsCache(t *testing.T) {
	fs := &fakeSearcher{markets: []mango.FullMarket{
		{Id: "a", Question: "Q a?", Probability: 0.3, TotalLiquidity: 120, OutcomeType: mango.Binary},
		{Id: "b", Question: "Q b?", Probability: 0.6, TotalLiquidity: 50, OutcomeType: mango.Binary, IsResolved: true},
	}}
	cache := NewQuestionCache(time.Hour)
	l := NewManifoldLister(fs, cache)

	got, err := l.ListMarkets(context.Background(), 25)
	if err != nil {
		t.Fatal(err)
	}
	if fs.req.Limit != 25 || fs.req.ContractType != "BINARY" {
		t.Errorf("unexpected request: %+v", fs.req)
	}
	if len(got) != 1 {
		t.Fatalf("expected resolved market to be dropped, got %d markets", len(got))
	}
	if got[0].Platform != PlatformManifold || got[0].Currency != Mana || got[0].PYes != 0.3 {
		t.Errorf("unexpected conversion: %+v", got[0])
	}
	if q, ok := cache.Get("a"); !ok || q != "Q a?" {
		t.Error("expected lister to seed the question cache")
	}
}

type fakeGraph struct {
	vars map[string]any
	json string
}

func (f *fakeGraph) Query(_ context.Context, _ string, vars map[string]any, out any) error {
	f.vars = vars
	return json.Unmarshal([]byte(f.json), out)
}

func TestOmenLister_Conversion(t *testing.T) {
	g := &fakeGraph{json: `{"fixedProductMarketMakers":[
		{"id":"0xabc","title":"Will X happen?","outcomes":["Yes","No"],
		 "outcomeTokenMarginalPrices":["0.7","0.3"],"liquidityMeasure":"12500000000000000000",
		 "openingTimestamp":"1712000000"},
		{"id":"0xdef","title":"Reversed?","outcomes":["No","Yes"],
		 "outcomeTokenMarginalPrices":["0.4","0.6"],"liquidityMeasure":"500000000000000000",
		 "openingTimestamp":"1712000000"},
		{"id":"0xbad","title":"Broken","outcomes":["Yes","No"],
		 "outcomeTokenMarginalPrices":["nope","0.5"],"liquidityMeasure":"1"}
	]}`}
	l := NewOmenLister(g)
	l.now = func() time.Time { return time.Unix(1700000000, 0) }

	got, err := l.ListMarkets(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if g.vars["now"] != "1700000000" {
		t.Errorf("expected now variable as unix string, got %v", g.vars["now"])
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(got))
	}
	if got[0].PYes != 0.7 || got[0].Liquidity != 12.5 || got[0].Currency != XDai {
		t.Errorf("unexpected first market: %+v", got[0])
	}
	if got[1].PYes != 0.6 || got[1].Liquidity != 0.5 {
		t.Errorf("expected yes price from second outcome slot, got %+v", got[1])
	}
	if !got[0].CloseTime.Equal(time.Unix(1712000000, 0)) {
		t.Errorf("unexpected close time %v", got[0].CloseTime)
	}
}
