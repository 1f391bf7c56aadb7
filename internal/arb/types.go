// Package arb implements the cross-pool arbitrage search of §4.3: for
// a token pair, it finds the best buy-pool/sell-pool combination,
// computes the optimal trade size by bounded grid search, and yields a
// candidate Opportunity.
package arb

import (
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/pbelltech0/solana-streamer/internal/profit"
)

// Opportunity is a raw candidate cross-pool arbitrage trade, per §3.
type Opportunity struct {
	BuyPool     poolstate.PoolId
	BuyVariant  poolstate.Variant
	SellPool    poolstate.PoolId
	SellVariant poolstate.Variant
	Pair        poolstate.TokenPair

	BuyPrice  float64
	SellPrice float64

	TradeSizeInQuote float64

	ExpectedIntermediate float64 // output of leg 1
	ExpectedFinal        float64 // output of leg 2

	Fees       profit.FeeBreakdown
	FeesTotal  int64
	NetProfit  int64
	NetProfitPct float64

	ProbLeg1     float64
	ProbLeg2     float64
	ProbCombined float64

	ExpectedValue float64
	EVScore       float64

	ConfidenceBucket profit.ConfidenceBucket

	ObservedUnix int64
}

// Config is the search-stage configuration surface of §6.
type Config struct {
	MinPerPoolLiq    float64
	MinCombinedLiq   float64
	MaxLoan          float64
	GridSteps        int // K in §4.3, default 20
	AllowSameVariant bool
	FocusPairs       []poolstate.TokenPair // optional priority subset for periodic rescans
}

// DefaultConfig returns the §4.3 defaults.
func DefaultConfig() Config {
	return Config{
		MinPerPoolLiq:    0,
		MinCombinedLiq:   0,
		MaxLoan:          1e18,
		GridSteps:        20,
		AllowSameVariant: false,
	}
}

// ProfitConfig is the fee/acceptance-gate configuration surface of §6/§4.4.
type ProfitConfig struct {
	FlashRate       float64
	GasLamports     int64
	TipLamports     int64
	SwapFeeOverride *uint16 // optional global override of per-pool fee, in bps
	MinNetProfitPct float64
	MinProb         float64
	MinEV           float64
}

// DefaultProfitConfig returns the §4.3 defaults: 9 bps flash rate.
func DefaultProfitConfig() ProfitConfig {
	return ProfitConfig{
		FlashRate:       0.0009,
		MinNetProfitPct: 0.3,
		MinProb:         0.4,
	}
}
