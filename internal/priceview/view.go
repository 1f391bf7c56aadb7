// Package priceview derives the per-pair ordered list of current prices
// the search stage consumes. It holds no state of its own — every call
// recomputes from a Store snapshot — so there is no separate lock to
// reason about (§5: "derived on demand from the store, not separately guarded").
package priceview

import (
	"time"

	"github.com/pbelltech0/solana-streamer/internal/poolstate"
)

// MaxAgeSeconds is the lifetime bound on a derived PricePoint: entries
// older than this are purged on touch (§3).
const MaxAgeSeconds = 30

// PricePoint is the per-pair derived view of one pool's instantaneous
// marginal price, per §3.
type PricePoint struct {
	PoolId          poolstate.PoolId
	ProtocolVariant poolstate.Variant
	Price           float64
	LiquidityProxy  float64
	TokenBase       poolstate.TokenId
	TokenQuote      poolstate.TokenId
	ObservedUnix    int64
}

// Build derives the ordered list of PricePoints for pair from store,
// dropping any pool whose price can't be computed (non-finite, zero
// sqrt-price, etc.) and any PricePoint older than MaxAgeSeconds.
func Build(store *poolstate.Store, pair poolstate.TokenPair, now time.Time) []PricePoint {
	states := store.PoolsForPair(pair, now)
	out := make([]PricePoint, 0, len(states))
	cutoff := now.Unix() - MaxAgeSeconds

	for _, s := range states {
		if s.LastUpdatedUnix < cutoff {
			continue
		}
		model, err := s.ToModel()
		if err != nil {
			continue
		}
		price, err := model.Price()
		if err != nil {
			continue
		}

		base, quote := s.TokenA, s.TokenB
		p := price
		if base != pair.Base {
			// the protocol's native order doesn't match the pair's
			// normalized order; invert so every PricePoint for this
			// pair reports quote_per_base consistently.
			base, quote = quote, base
			if p != 0 {
				p = 1 / p
			}
		}

		out = append(out, PricePoint{
			PoolId:          s.PoolId,
			ProtocolVariant: s.ProtocolVariant,
			Price:           p,
			LiquidityProxy:  model.LiquidityProxy(),
			TokenBase:       base,
			TokenQuote:      quote,
			ObservedUnix:    s.LastUpdatedUnix,
		})
	}
	return out
}
