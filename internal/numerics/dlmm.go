package numerics

import (
	"fmt"
	"math/big"
)

// DLMM implements Model for a binned-liquidity pool (Meteora-style, see
// the BinStep/ActiveBin fields on MeteoraDlmmPool in the retrieval
// pack). It behaves like CL with an additional per-bin traversal
// widening of the impact figure.
type DLMM struct {
	SqrtPriceQ64 *big.Int
	Liquidity    float64
	BinStepBps   uint16
}

var _ Model = (*DLMM)(nil)

func (d *DLMM) Price() (float64, error) {
	return SqrtPriceX64ToPrice(d.SqrtPriceQ64)
}

func (d *DLMM) LiquidityProxy() float64 {
	if d.Liquidity < 0 {
		return 0
	}
	return d.Liquidity
}

// QuoteOutput reuses CLApproximateOutput and then widens the impact by
// (1 + bin_step_bps/100) to account for per-bin traversal cost, per §4.2.
func (d *DLMM) QuoteOutput(inputAmount float64, direction Direction) (float64, float64, error) {
	output, impactBps, err := CLApproximateOutput(inputAmount, d.Liquidity)
	if err != nil {
		return 0, 0, err
	}
	widened := impactBps * (1 + float64(d.BinStepBps)/100)
	widened, err = FiniteFloat(widened)
	if err != nil {
		return 0, 0, fmt.Errorf("numerics: dlmm impact widening overflowed: %w", err)
	}
	return output, widened, nil
}

func (d *DLMM) ExecutionProbability(tradeSize float64, direction Direction) float64 {
	return ExponentialExecutionProbability(tradeSize, d.Liquidity/1_000_000)
}
