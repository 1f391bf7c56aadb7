package profit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetProfitIsExactFeeClosure(t *testing.T) {
	fees := FeeBreakdown{SwapFeeLeg1: 100, SwapFeeLeg2: 150, FlashLoanFee: 900, GasLamports: 5000, TipLamports: 1000}
	gross := int64(50_000)
	net := NetProfit(gross, fees)
	assert.Equal(t, gross-fees.DeductibleTotal(), net)
	// swap fees are reported in Total() but not deducted a second time
	assert.NotEqual(t, gross-fees.Total(), net)
}

func TestNetProfitPctZeroTradeSize(t *testing.T) {
	assert.Equal(t, 0.0, NetProfitPct(100, 0))
}

func TestEVScoreClampsToHundred(t *testing.T) {
	assert.Equal(t, 100.0, EVScore(1_000_000_000))
	assert.Equal(t, 0.0, EVScore(-5))
	assert.InDelta(t, 5.0, EVScore(50_000), 1e-9)
}

func TestEVScoreMonotoneInNetProfitAndProbability(t *testing.T) {
	evLow := ExpectedValue(1000, 0.5)
	evHigh := ExpectedValue(2000, 0.5)
	assert.Greater(t, EVScore(evHigh), EVScore(evLow))

	evLowProb := ExpectedValue(1000, 0.2)
	evHighProb := ExpectedValue(1000, 0.8)
	assert.Greater(t, EVScore(evHighProb), EVScore(evLowProb))
}

func TestClassifyTakesHighestQualifyingBucket(t *testing.T) {
	assert.Equal(t, ConfidenceVeryHigh, Classify(0.85, 1.5))
	assert.Equal(t, ConfidenceHigh, Classify(0.65, 0.6))
	assert.Equal(t, ConfidenceMedium, Classify(0.45, 0.35))
	assert.Equal(t, ConfidenceLow, Classify(0.25, 0.01))
	assert.Equal(t, ConfidenceVeryLow, Classify(0.1, 5))
}

func TestClassifyRequiresBothThresholds(t *testing.T) {
	// high probability alone, without the matching net-pct, falls
	// through to the next bucket down whose thresholds are both met.
	assert.Equal(t, ConfidenceLow, Classify(0.85, 0.1))
}

func TestCombinedProbabilityIsProduct(t *testing.T) {
	assert.InDelta(t, 0.56, CombinedProbability(0.8, 0.7), 1e-9)
}

func TestSimulateDoesNotMutateCaller(t *testing.T) {
	fees := FeeBreakdown{FlashLoanFee: 900}
	original := fees

	altNet, err := Simulate(50_000, 1_000_000, fees, 0.002)
	require.NoError(t, err)

	assert.Equal(t, original, fees)
	assert.NotEqual(t, NetProfit(50_000, fees), altNet)
}

func TestSimulateRejectsNegativeTradeSize(t *testing.T) {
	_, err := Simulate(100, -1, FeeBreakdown{}, 0.001)
	assert.Error(t, err)
}
