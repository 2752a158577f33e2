package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrUnknownPlatform is returned when a platform kind has no policy branch.
// It signals a configuration or programming error and is never recovered.
var ErrUnknownPlatform = errors.New("unknown market platform")

// Platform identifies the venue a market lives on.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformManifold
	PlatformOmen
)

func (p Platform) String() string {
	switch p {
	case PlatformManifold:
		return "manifold"
	case PlatformOmen:
		return "omen"
	default:
		return fmt.Sprintf("platform(%d)", int(p))
	}
}

// ParsePlatform maps a CLI/config name to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manifold":
		return PlatformManifold, nil
	case "omen":
		return PlatformOmen, nil
	default:
		return PlatformUnknown, fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}

// Currency is the settlement unit of a platform.
type Currency string

const (
	Mana Currency = "M"
	XDai Currency = "xDai"
)

// BetAmount pairs a stake with its currency.
type BetAmount struct {
	Amount   float64
	Currency Currency
}

func (b BetAmount) String() string {
	return fmt.Sprintf("%g %s", b.Amount, b.Currency)
}

// Market is a read-only snapshot of a binary market.
type Market struct {
	ID        string
	Question  string
	PYes      float64 // current implied probability of YES
	Liquidity float64 // in the market's native currency
	Currency  Currency
	Platform  Platform
	CloseTime time.Time
	URL       string
}

// TinyBetAmount is the smallest stake the platform accepts, used when the
// computed stake is over the limit.
func (m Market) TinyBetAmount() BetAmount {
	switch m.Platform {
	case PlatformManifold:
		return BetAmount{Amount: 1, Currency: Mana}
	case PlatformOmen:
		return BetAmount{Amount: 0.00001, Currency: XDai}
	default:
		return BetAmount{Currency: m.Currency}
	}
}

// MinimumBetToWin returns the smallest whole-unit stake whose profit at the
// current price is at least amountToWin. Returns +Inf when the chosen side is
// priced at certainty and cannot pay out.
func (m Market) MinimumBetToWin(decision bool, amountToWin float64) float64 {
	price := m.PYes
	if !decision {
		price = 1 - m.PYes
	}
	if price >= 1 {
		return math.Inf(1)
	}
	if price <= 0 {
		return 1
	}
	// Profit per unit staked is (1-price)/price. The epsilon keeps float
	// noise like 4.000000000000001 from rounding up a whole unit.
	stake := math.Ceil(amountToWin*price/(1-price) - 1e-9)
	if stake < 1 {
		stake = 1
	}
	return stake
}

// Bet is one historical bet, reduced to what recency filtering needs.
type Bet struct {
	MarketID  string
	Question  string
	CreatedAt time.Time
}

// Answer is the prediction model's decision for a market.
type Answer struct {
	Decision   bool    // true = YES
	PYes       float64 // model's probability of YES
	Confidence float64 // 0.0-1.0
}

// Outcome renders the decision the way the platforms spell it.
func (a Answer) Outcome() string {
	if a.Decision {
		return "YES"
	}
	return "NO"
}

// Prediction is the raw result of the prediction step. A nil Outcome means
// the model produced no directional answer.
type Prediction struct {
	Outcome *Answer
}
