package numerics

import (
	"fmt"
	"math"
)

// CPMM implements Model for a constant-product pool (x*y=k), covering
// both the CPMM-classic and CPMM-stable protocol variants — the two
// share the same output formula at this level of fidelity; stable-swap
// curve correction is out of scope (see DESIGN.md).
type CPMM struct {
	ReserveBase  float64 // smallest units, as float64 for impact/price math only
	ReserveQuote float64
	FeeBps       uint16
}

var _ Model = (*CPMM)(nil)

// Price is reserve_quote / reserve_base, per §4.2.
func (c *CPMM) Price() (float64, error) {
	if c.ReserveBase <= 0 || c.ReserveQuote <= 0 {
		return 0, fmt.Errorf("numerics: cpmm price requires both reserves > 0")
	}
	return FiniteFloat(c.ReserveQuote / c.ReserveBase)
}

// LiquidityProxy is min(reserve_base, reserve_quote) * 10, a
// conservative scaling so thin single-sided reserves don't pass the gate.
func (c *CPMM) LiquidityProxy() float64 {
	return math.Min(c.ReserveBase, c.ReserveQuote) * 10
}

func (c *CPMM) fee() float64 {
	return float64(c.FeeBps) / 10_000
}

// QuoteOutput implements y = (x*(1-fee)*R_q) / (R_b + x*(1-fee)) for
// BaseToQuote, and the symmetric form for QuoteToBase.
func (c *CPMM) QuoteOutput(inputAmount float64, direction Direction) (float64, float64, error) {
	if inputAmount <= 0 {
		return 0, 0, fmt.Errorf("numerics: cpmm input amount must be positive")
	}
	spot, err := c.Price()
	if err != nil {
		return 0, 0, err
	}
	f := c.fee()
	netIn := inputAmount * (1 - f)

	var out, execPrice float64
	switch direction {
	case BaseToQuote:
		out = (netIn * c.ReserveQuote) / (c.ReserveBase + netIn)
		execPrice = out / inputAmount
	case QuoteToBase:
		out = (netIn * c.ReserveBase) / (c.ReserveQuote + netIn)
		execPrice = inputAmount / out // quote spent per base received
	default:
		return 0, 0, fmt.Errorf("numerics: unknown direction %d", direction)
	}
	if out <= 0 {
		return 0, 0, fmt.Errorf("numerics: cpmm produced non-positive output")
	}
	impact := math.Abs(spot-execPrice) / spot * 10_000
	out, err = FiniteFloat(out)
	if err != nil {
		return 0, 0, err
	}
	impact, err = FiniteFloat(impact)
	if err != nil {
		return 0, 0, err
	}
	return out, impact, nil
}

// ExecutionProbability implements the canonical exponential-decay
// contract (§4.2 Open Question resolved in favor of the exponential
// form): p = exp(-5 * size_ratio), clamped to [0, 1].
func (c *CPMM) ExecutionProbability(tradeSize float64, direction Direction) float64 {
	reserveOnInput := c.ReserveBase
	if direction == QuoteToBase {
		reserveOnInput = c.ReserveQuote
	}
	return ExponentialExecutionProbability(tradeSize, reserveOnInput)
}

// ExponentialExecutionProbability is the shared decay function every
// variant's ExecutionProbability delegates to, isolated here so the
// documented constants (decay rate 5, clamp bounds) live in one place.
func ExponentialExecutionProbability(tradeSize, reserveOnInputSide float64) float64 {
	if reserveOnInputSide <= 0 {
		return 0
	}
	sizeRatio := tradeSize / reserveOnInputSide
	p := math.Exp(-5 * sizeRatio)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
