package poolstate

import (
	"fmt"
	"math/big"

	"github.com/pbelltech0/solana-streamer/internal/numerics"
)

// liquidityToFloat narrows a 128-bit liquidity figure to float64 for
// the impact/probability math, which is float by design (§9).
func liquidityToFloat(l *big.Int) float64 {
	f, _ := new(big.Float).SetInt(l).Float64()
	return f
}

// ToModel builds the numerics.Model dispatch arm matching this pool's
// protocol variant — the tagged-variant dispatch §9 calls for, one arm
// per protocol, built fresh from a PoolState snapshot taken under the
// store's lock so the search stage never holds that lock while it runs.
func (s *PoolState) ToModel() (numerics.Model, error) {
	switch s.ProtocolVariant {
	case VariantCPMMClassic, VariantCPMMStable:
		return &numerics.CPMM{
			ReserveBase:  float64(s.ReserveA),
			ReserveQuote: float64(s.ReserveB),
			FeeBps:       s.TotalFeeBps,
		}, nil
	case VariantConcentratedLiquidity:
		if s.Liquidity == nil {
			return nil, fmt.Errorf("poolstate: CL pool %s missing liquidity", s.PoolId)
		}
		return &numerics.CL{
			SqrtPriceQ64: s.SqrtPriceQ64,
			Liquidity:    liquidityToFloat(s.Liquidity),
		}, nil
	case VariantBinnedLiquidity:
		if s.Liquidity == nil {
			return nil, fmt.Errorf("poolstate: DLMM pool %s missing liquidity", s.PoolId)
		}
		return &numerics.DLMM{
			SqrtPriceQ64: s.SqrtPriceQ64,
			Liquidity:    liquidityToFloat(s.Liquidity),
			BinStepBps:   s.BinStepBps,
		}, nil
	default:
		return nil, fmt.Errorf("poolstate: unknown protocol variant %d", s.ProtocolVariant)
	}
}
