// Package profit implements the gross->net profit accounting, the
// combined execution probability, the expected-value score, and the
// confidence-bucket tagging of §4.4.
package profit

import "fmt"

// EVScale is the fixed divisor that normalizes EV (denominated in the
// base unit) to roughly a 0-100 ev_score range, per §4.4.
const EVScale = 10_000

// FeeBreakdown is the fee taxonomy of §4.4: every rate is configurable,
// sourced from the pool (swap fees) or from Config (flash-loan, gas, tip).
//
// SwapFeeLeg1/SwapFeeLeg2 are carried for display/reporting only: the
// per-variant quote_output already nets the pool's own swap fee into
// its output amount (that is how an xy=k AMM charges a fee — by
// shrinking the effective input), so subtracting it again out of
// gross_profit would double-charge it. NetProfit therefore deducts
// only the fees gross_profit does not already reflect: the flash-loan
// fee, gas, and tip. See SPEC_FULL.md §6 for this Open Question's resolution.
type FeeBreakdown struct {
	SwapFeeLeg1  int64 // informational: fee amount embedded in leg 1's quote_output
	SwapFeeLeg2  int64 // informational: fee amount embedded in leg 2's quote_output
	FlashLoanFee int64
	GasLamports  int64
	TipLamports  int64
}

// Total sums the full taxonomy for the fees_total reporting field.
func (f FeeBreakdown) Total() int64 {
	return f.SwapFeeLeg1 + f.SwapFeeLeg2 + f.DeductibleTotal()
}

// DeductibleTotal sums only the fees not already embedded in
// gross_profit: flash-loan fee, gas, and tip.
func (f FeeBreakdown) DeductibleTotal() int64 {
	return f.FlashLoanFee + f.GasLamports + f.TipLamports
}

// NetProfit implements net_profit = gross_profit - flash_fee - gas - tip
// exactly in integer arithmetic, with no separate drift term.
func NetProfit(grossProfit int64, fees FeeBreakdown) int64 {
	return grossProfit - fees.DeductibleTotal()
}

// NetProfitPct expresses net profit relative to the trade size; returns
// 0 when tradeSize is 0 to avoid a division error on a degenerate call.
func NetProfitPct(netProfit int64, tradeSize int64) float64 {
	if tradeSize == 0 {
		return 0
	}
	return float64(netProfit) / float64(tradeSize) * 100
}

// CombinedProbability implements prob_combined = prob_leg1 * prob_leg2,
// treating the legs as independent — explicitly conservative per §4.4.
func CombinedProbability(probLeg1, probLeg2 float64) float64 {
	return probLeg1 * probLeg2
}

// ExpectedValue is EV = net_profit * prob_combined.
func ExpectedValue(netProfit int64, probCombined float64) float64 {
	return float64(netProfit) * probCombined
}

// EVScore normalizes EV to a 0-100 scale: min(EV/EVScale, 100). This is
// the pure-EV form the spec's Open Question resolves in favor of; the
// net-percent-weighted alternative is documented and not implemented
// (see DESIGN.md).
func EVScore(ev float64) float64 {
	score := ev / EVScale
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// ConfidenceBucket is a deterministic tag of (prob_combined, net_profit_pct).
type ConfidenceBucket int

const (
	ConfidenceVeryLow ConfidenceBucket = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

// String names the bucket for logging and serialization.
func (c ConfidenceBucket) String() string {
	switch c {
	case ConfidenceVeryHigh:
		return "very-high"
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "very-low"
	}
}

// Classify tags (probCombined, netProfitPct) with the highest bucket
// whose both thresholds are met, per the §4.4 table.
func Classify(probCombined, netProfitPct float64) ConfidenceBucket {
	switch {
	case probCombined > 0.80 && netProfitPct > 1.0:
		return ConfidenceVeryHigh
	case probCombined > 0.60 && netProfitPct > 0.5:
		return ConfidenceHigh
	case probCombined > 0.40 && netProfitPct > 0.3:
		return ConfidenceMedium
	case probCombined > 0.20:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// Simulate recomputes net profit under an alternative flash-loan rate
// without mutating the caller's figures — the flash-loan simulation
// mode carried over from the original Rust examples
// (examples/flash_loan_simulation.rs), useful for "what if this loan
// provider charged X instead" what-if analysis outside the accept/reject path.
func Simulate(grossProfit, tradeSize int64, fees FeeBreakdown, altFlashRate float64) (int64, error) {
	if tradeSize < 0 {
		return 0, fmt.Errorf("profit: trade size must be non-negative")
	}
	altFees := fees
	altFees.FlashLoanFee = int64(float64(tradeSize) * altFlashRate)
	return NetProfit(grossProfit, altFees), nil
}
