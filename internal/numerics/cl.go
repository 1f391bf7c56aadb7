package numerics

import (
	"fmt"
	"math/big"
)

// CL implements Model for a concentrated-liquidity pool addressed by a
// Q64.64 sqrt-price and an aggregate liquidity figure. Full tick-bitmap
// walking (the precise Uniswap-v3-style output computation the teacher's
// pkg/util test suite exercises via ComputeAmounts/CalculateTokenAmountsFromLiquidity)
// is out of scope here — §4.2 mandates an approximation instead. The
// approximation is isolated behind CLApproximateOutput so a real
// tick-walker can replace it later without touching callers; see
// TickWalker below for the named replacement hook.
type CL struct {
	SqrtPriceQ64 *big.Int
	Liquidity    float64 // big 128-bit liquidity, narrowed to float64 for impact math only
}

var _ Model = (*CL)(nil)

// TickWalker is the replacement hook for CLApproximateOutput: an
// implementation that walks the tick bitmap precisely would satisfy
// this interface. No implementation ships with this package.
type TickWalker interface {
	WalkOutput(sqrtPriceQ64 *big.Int, liquidity float64, inputAmount float64, direction Direction) (outputAmount float64, impactBps float64, err error)
}

func (c *CL) Price() (float64, error) {
	return SqrtPriceX64ToPrice(c.SqrtPriceQ64)
}

// LiquidityProxy exposes the raw liquidity figure directly; CL pools
// don't have a reserve pair, so the liquidity figure itself is the
// comparable scalar used by the search stage's liquidity gate.
func (c *CL) LiquidityProxy() float64 {
	if c.Liquidity < 0 {
		return 0
	}
	return c.Liquidity
}

func (c *CL) QuoteOutput(inputAmount float64, direction Direction) (float64, float64, error) {
	return CLApproximateOutput(inputAmount, c.Liquidity)
}

// CLApproximateOutput is the deliberate, documented CL approximation
// from §4.2: impact fraction ≈ trade_size / (liquidity / 1_000_000),
// clamped to [0,1]; output ≈ trade_size * (1 - 0.5*impact). It is
// direction-agnostic at this level of fidelity (tick-walking would add
// direction sensitivity; this approximation does not model it).
func CLApproximateOutput(tradeSize, liquidity float64) (float64, float64, error) {
	if tradeSize <= 0 {
		return 0, 0, fmt.Errorf("numerics: cl input amount must be positive")
	}
	if liquidity <= 0 {
		return 0, 0, fmt.Errorf("numerics: cl liquidity must be positive")
	}
	impactFraction := tradeSize / (liquidity / 1_000_000)
	if impactFraction < 0 {
		impactFraction = 0
	}
	if impactFraction > 1 {
		impactFraction = 1
	}
	output := tradeSize * (1 - 0.5*impactFraction)
	impactBps := impactFraction * 10_000
	output, err := FiniteFloat(output)
	if err != nil {
		return 0, 0, err
	}
	impactBps, err = FiniteFloat(impactBps)
	if err != nil {
		return 0, 0, err
	}
	return output, impactBps, nil
}

func (c *CL) ExecutionProbability(tradeSize float64, direction Direction) float64 {
	// CL pools have no single "reserve"; the liquidity figure stands
	// in for it directly, scaled down by the same 1_000_000 divisor
	// CLApproximateOutput uses, so the two stay consistent.
	return ExponentialExecutionProbability(tradeSize, c.Liquidity/1_000_000)
}

// ValidateSqrtPrice is shared by the store's tradability check: a CL
// pool is only tradable when its sqrt-price is a positive value that
// fits the Q64.64 representation (128 bits).
func ValidateSqrtPrice(sqrtPriceQ64 *big.Int) error {
	if sqrtPriceQ64 == nil || sqrtPriceQ64.Sign() <= 0 {
		return fmt.Errorf("numerics: sqrt_price_q64 must be positive")
	}
	if sqrtPriceQ64.BitLen() > 128 {
		return fmt.Errorf("numerics: sqrt_price_q64 overflows 128 bits")
	}
	return nil
}
