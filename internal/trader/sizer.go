package trader

import (
	"fmt"
	"log/slog"
	"math"

	"prophetagent/internal/market"
)

const (
	// Manifold only takes whole mana, so we bet the least that wins 1 mana.
	manifoldAmountToWin = 1.0
	manifoldMaxBet      = 10.0

	omenMinBet = 0.5
	omenMaxBet = 1.0

	// Stakes that agree with the market's lean are shrunk, contrarian ones grown.
	agreeMultiplier    = 0.75
	disagreeMultiplier = 1.25
)

// Sizer decides how much to stake on an answered market.
type Sizer struct{}

func NewSizer() *Sizer { return &Sizer{} }

// SizeStake returns the stake for answer on m, in m's currency. A computed
// stake above the platform cap is replaced by the market's tiny bet amount.
func (s *Sizer) SizeStake(answer market.Answer, m market.Market) (market.BetAmount, error) {
	var amount, maxAmount float64

	switch m.Platform {
	case market.PlatformManifold:
		amount = m.MinimumBetToWin(answer.Decision, manifoldAmountToWin)
		maxAmount = manifoldMaxBet
	case market.PlatformOmen:
		amount = StretchBetween(ProbUncertainty(m.PYes), omenMinBet, omenMaxBet)
		if answer.Decision == (m.PYes > 0.5) {
			amount *= agreeMultiplier
		} else {
			amount *= disagreeMultiplier
		}
		maxAmount = omenMaxBetForLiquidity(m.Liquidity)
	default:
		return market.BetAmount{}, fmt.Errorf("%w: %v (market %s)", market.ErrUnknownPlatform, m.Platform, m.ID)
	}

	if math.IsNaN(amount) || amount > maxAmount {
		tiny := m.TinyBetAmount()
		slog.Warn("calculated amount exceeds limit, betting tiny amount instead",
			"market", m.ID,
			"amount", amount,
			"max_amount", maxAmount,
			"currency", m.Currency,
			"tiny_amount", tiny.Amount,
		)
		amount = tiny.Amount
	}

	return market.BetAmount{Amount: amount, Currency: m.Currency}, nil
}

func omenMaxBetForLiquidity(liquidity float64) float64 {
	switch {
	case liquidity > 5:
		return 2.0
	case liquidity > 1:
		return 0.1
	default:
		return 0
	}
}

// ProbUncertainty maps a probability to [0, 1]: 1 at 0.5, 0 at certainty.
func ProbUncertainty(p float64) float64 {
	return 1 - math.Abs(p-0.5)*2
}

// StretchBetween maps x in [0, 1] linearly onto [lo, hi].
func StretchBetween(x, lo, hi float64) float64 {
	x = math.Max(0, math.Min(1, x))
	return lo + (hi-lo)*x
}
