// Package numerics holds the fixed-precision conversions and per-variant
// DEX pricing models shared by the pool-state store and the arbitrage
// search. Pool state keeps reserves and liquidity as integers (uint64 /
// big.Int) and sqrt-prices as Q64.64 big.Int; the models in this
// package take reserves and liquidity narrowed to float64 and return
// output amounts, prices, probabilities and impact figures as float64.
package numerics

import (
	"fmt"
	"math"
	"math/big"
)

// Q64Scale is 2^64, the fixed-point scale of a Q64.64 sqrt-price.
var Q64Scale = new(big.Int).Lsh(big.NewInt(1), 64)

// Q64ScaleFloat is Q64Scale as a big.Float, built once and shared to
// avoid repeated big.Float allocations on the hot path.
var Q64ScaleFloat = new(big.Float).SetInt(Q64Scale)

// SqrtPriceX64ToPrice converts a Q64.64 sqrt-price into price = (sqrtPrice / 2^64)^2.
// Grounded on the teacher's SqrtPriceToPrice (pkg/util/calculation_test.go),
// rescaled from the teacher's Q96 convention to this system's Q64.64 one.
func SqrtPriceX64ToPrice(sqrtPriceQ64 *big.Int) (float64, error) {
	if sqrtPriceQ64 == nil || sqrtPriceQ64.Sign() <= 0 {
		return 0, fmt.Errorf("numerics: sqrt_price_q64 must be positive")
	}
	ratio := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceQ64), Q64ScaleFloat)
	ratio.Mul(ratio, ratio)
	price, _ := ratio.Float64()
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("numerics: sqrt_price_q64 produced a non-finite price")
	}
	return price, nil
}

// PriceToSqrtPriceX64 is the inverse conversion, used by tests and by
// scenario fixtures that specify a target price and need a Q64.64 value.
func PriceToSqrtPriceX64(price float64) (*big.Int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("numerics: price must be finite and positive")
	}
	sqrt := math.Sqrt(price)
	scaled := new(big.Float).Mul(big.NewFloat(sqrt), Q64ScaleFloat)
	out, _ := scaled.Int(nil)
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("numerics: price too small to represent in Q64.64")
	}
	return out, nil
}

// SaturateToUint64 clamps a big.Int into the uint64 range instead of
// wrapping, per the boundary-conversion discipline: non-finite or
// out-of-range values are an error, never silent truncation.
func SaturateToUint64(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 {
		return 0, fmt.Errorf("numerics: negative value cannot convert to uint64")
	}
	if v.BitLen() > 64 {
		return 0, fmt.Errorf("numerics: value overflows uint64")
	}
	return v.Uint64(), nil
}

// FiniteFloat rejects NaN/Inf, the gate every float that crosses a
// component boundary (price, probability, impact) must pass through.
func FiniteFloat(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("numerics: non-finite float")
	}
	return f, nil
}
