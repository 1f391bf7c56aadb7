package arb

import (
	"math/big"
	"testing"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/numerics"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenID(b byte) poolstate.TokenId {
	var id poolstate.TokenId
	id[31] = b
	return id
}

func poolID(b byte) poolstate.PoolId {
	var id poolstate.PoolId
	id[31] = b
	return id
}

func cpmm(id poolstate.PoolId, variant poolstate.Variant, a, b poolstate.TokenId, reserveA, reserveB uint64, feeBps uint16) *poolstate.PoolState {
	return &poolstate.PoolState{
		PoolId:          id,
		ProtocolVariant: variant,
		TokenA:          a,
		TokenB:          b,
		ReserveA:        reserveA,
		ReserveB:        reserveB,
		TotalFeeBps:     feeBps,
		LastUpdatedUnix: time.Now().Unix(),
	}
}

func TestScenarioACanonicalArb(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	pair := poolstate.NewTokenPair(base, quote)

	x := cpmm(poolID(1), poolstate.VariantCPMMClassic, base, quote, 10_000_000_000, 10_000_000_000, 25)
	y := cpmm(poolID(2), poolstate.VariantCPMMStable, base, quote, 5_000_000_000, 5_100_000_000, 25)

	cfg := DefaultConfig()
	pcfg := ProfitConfig{FlashRate: 0.0009, MinNetProfitPct: 0.3, MinProb: 0.4}

	opps := Search(pair, []*poolstate.PoolState{x, y}, cfg, pcfg, time.Now())
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, poolID(1), o.BuyPool)
	assert.Equal(t, poolID(2), o.SellPool)
	assert.Greater(t, o.NetProfit, int64(0))
	assert.Contains(t, []string{"high", "medium"}, o.ConfidenceBucket.String())
}

func TestScenarioBSpreadOnFeeFloor(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	pair := poolstate.NewTokenPair(base, quote)

	x := cpmm(poolID(1), poolstate.VariantCPMMClassic, base, quote, 10_000_000_000, 10_000_000_000, 25)
	y := cpmm(poolID(2), poolstate.VariantCPMMStable, base, quote, 5_000_000_000, 5_005_000_000, 25)

	cfg := DefaultConfig()
	pcfg := ProfitConfig{FlashRate: 0.0009, MinNetProfitPct: 0.3, MinProb: 0.4}

	opps := Search(pair, []*poolstate.PoolState{x, y}, cfg, pcfg, time.Now())
	assert.Empty(t, opps)
}

func TestScenarioCIlliquidPoolFiltered(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	pair := poolstate.NewTokenPair(base, quote)

	x := cpmm(poolID(1), poolstate.VariantCPMMClassic, base, quote, 10_000_000_000, 10_000_000_000, 25)
	y := cpmm(poolID(2), poolstate.VariantCPMMStable, base, quote, 10_000, 10_200, 25)

	cfg := DefaultConfig()
	cfg.MinPerPoolLiq = 1_000_000 // both reserves * 10 for y is well under this
	pcfg := ProfitConfig{FlashRate: 0.0009, MinNetProfitPct: 0.3, MinProb: 0.4}

	opps := Search(pair, []*poolstate.PoolState{x, y}, cfg, pcfg, time.Now())
	assert.Empty(t, opps)
}

func TestScenarioDCLCPMMCrossVariant(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	pair := poolstate.NewTokenPair(base, quote)

	x := cpmm(poolID(1), poolstate.VariantCPMMClassic, base, quote, 10_000_000_000, 10_000_000_000, 25)

	sqrtPrice, err := numerics.PriceToSqrtPriceX64(1.02)
	require.NoError(t, err)
	y := &poolstate.PoolState{
		PoolId:          poolID(2),
		ProtocolVariant: poolstate.VariantConcentratedLiquidity,
		TokenA:          base,
		TokenB:          quote,
		SqrtPriceQ64:    sqrtPrice,
		Liquidity:       big.NewInt(1_000_000_000_000),
		TotalFeeBps:     30,
		LastUpdatedUnix: time.Now().Unix(),
	}

	cfg := DefaultConfig()
	pcfg := ProfitConfig{FlashRate: 0.0009, MinNetProfitPct: 0.1, MinProb: 0.1}

	opps := Search(pair, []*poolstate.PoolState{x, y}, cfg, pcfg, time.Now())
	require.Len(t, opps, 1)
	o := opps[0]
	assert.InDelta(t, 1.0, o.BuyPrice, 1e-9)
	assert.InDelta(t, 1.02, o.SellPrice, 1e-3)
	assert.Greater(t, o.ProbLeg2, 0.0)
}

func TestIdentityScanEmitsNothing(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	pair := poolstate.NewTokenPair(base, quote)

	x := cpmm(poolID(1), poolstate.VariantCPMMClassic, base, quote, 10_000_000_000, 10_000_000_000, 25)
	y := cpmm(poolID(2), poolstate.VariantCPMMStable, base, quote, 10_000_000_000, 10_000_000_000, 25)

	opps := Search(pair, []*poolstate.PoolState{x, y}, DefaultConfig(), DefaultProfitConfig(), time.Now())
	assert.Empty(t, opps)
}

func TestMonotoneSizeNeverIncreasesProbCombined(t *testing.T) {
	c := candidate{
		id:             poolID(1),
		variant:        poolstate.VariantCPMMClassic,
		model:          &numerics.CPMM{ReserveBase: 1e10, ReserveQuote: 1e10, FeeBps: 25},
		liquidityProxy: 1e11,
	}
	p1 := c.model.ExecutionProbability(1e6, numerics.BaseToQuote)
	p2 := c.model.ExecutionProbability(1e7, numerics.BaseToQuote)
	assert.GreaterOrEqual(t, p1, p2)

	sell := candidate{
		id:             poolID(2),
		variant:        poolstate.VariantCPMMStable,
		model:          &numerics.CPMM{ReserveBase: 5e9, ReserveQuote: 5.1e9, FeeBps: 25},
		liquidityProxy: 5e10,
	}
	pair := poolstate.NewTokenPair(tokenID(1), tokenID(2))
	now := time.Now()
	small, ok := evaluateSize(pair, c, sell, 1e6, DefaultProfitConfig(), now)
	require.True(t, ok)
	large, ok := evaluateSize(pair, c, sell, 1e7, DefaultProfitConfig(), now)
	require.True(t, ok)
	assert.GreaterOrEqual(t, small.ProbCombined, large.ProbCombined)
}

func TestSearchFewerThanTwoCandidatesReturnsNothing(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	pair := poolstate.NewTokenPair(base, quote)
	x := cpmm(poolID(1), poolstate.VariantCPMMClassic, base, quote, 10_000_000_000, 10_000_000_000, 25)

	opps := Search(pair, []*poolstate.PoolState{x}, DefaultConfig(), DefaultProfitConfig(), time.Now())
	assert.Empty(t, opps)
}
