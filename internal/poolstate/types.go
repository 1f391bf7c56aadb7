// Package poolstate holds the authoritative pool-state cache: the
// PoolId -> PoolState map with its secondary TokenPair -> {PoolId}
// index, and the PoolState type itself.
package poolstate

import (
	"bytes"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PoolId is a 32-byte opaque key, the same width the teacher uses for
// every on-chain address/hash — go-ethereum's common.Hash is a natural
// backing type even though this system tracks Solana-shaped program
// accounts rather than EVM contract addresses.
type PoolId common.Hash

// TokenId is a 32-byte opaque token mint identifier, same backing type.
type TokenId common.Hash

// String renders the identifier as a 0x-prefixed hex string.
func (p PoolId) String() string { return common.Hash(p).Hex() }

// String renders the identifier as a 0x-prefixed hex string.
func (t TokenId) String() string { return common.Hash(t).Hex() }

// TokenPair is the unordered pair of two TokenIds, normalized by byte
// order so that equality and map-keying don't depend on argument order.
type TokenPair struct {
	Base  TokenId
	Quote TokenId
}

// NewTokenPair normalizes a and b into a TokenPair with the
// lexicographically smaller id as Base.
func NewTokenPair(a, b TokenId) TokenPair {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return TokenPair{Base: a, Quote: b}
	}
	return TokenPair{Base: b, Quote: a}
}

// Variant is the closed set of DEX protocol variants this system
// understands. Each dictates which numerics.Model applies — see
// PoolState.ToModel (model.go) for the dispatch.
type Variant int

const (
	VariantCPMMClassic Variant = iota
	VariantCPMMStable
	VariantConcentratedLiquidity
	VariantBinnedLiquidity
)

// String names the variant for logging and error messages.
func (v Variant) String() string {
	switch v {
	case VariantCPMMClassic:
		return "cpmm-classic"
	case VariantCPMMStable:
		return "cpmm-stable"
	case VariantConcentratedLiquidity:
		return "concentrated-liquidity"
	case VariantBinnedLiquidity:
		return "binned-liquidity"
	default:
		return "unknown-variant"
	}
}

// IsCPMM reports whether the variant uses the constant-product model.
func (v Variant) IsCPMM() bool {
	return v == VariantCPMMClassic || v == VariantCPMMStable
}

// PoolState is the full observed state of one pool. It is created on
// first observation, mutated only by the ingestor, and destroyed by
// eviction — see Store.
type PoolState struct {
	PoolId          PoolId
	ProtocolVariant Variant
	TokenA          TokenId // ordered as the protocol stores them, not normalized
	TokenB          TokenId

	ReserveA uint64 // smallest units; required for CPMM, zero for CL/DLMM
	ReserveB uint64

	Liquidity *big.Int // unsigned 128-bit; used for CL/DLMM

	SqrtPriceQ64 *big.Int // optional Q64.64; required for CL/DLMM

	ActiveBinId int32  // optional, DLMM only
	BinStepBps  uint16 // optional, DLMM only

	TotalFeeBps uint16 // < 10000

	LastUpdatedUnix int64
	LastTradeUnix   int64
}

// Pair derives this pool's normalized TokenPair from its ordered token fields.
func (s *PoolState) Pair() TokenPair {
	return NewTokenPair(s.TokenA, s.TokenB)
}

// IsTradable checks the per-variant tradability invariants from §3:
// total_fee_bps < 10000, and CPMM requires both reserves > 0 while
// CL/DLMM require sqrt_price_q64 > 0 and liquidity > 0.
func (s *PoolState) IsTradable() bool {
	if s.TotalFeeBps >= 10_000 {
		return false
	}
	if s.ProtocolVariant.IsCPMM() {
		return s.ReserveA > 0 && s.ReserveB > 0
	}
	return s.SqrtPriceQ64 != nil && s.SqrtPriceQ64.Sign() > 0 &&
		s.Liquidity != nil && s.Liquidity.Sign() > 0
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// store's lock: PoolState is passed by value everywhere except its two
// *big.Int fields, which this clones so a caller can never mutate the
// store's interior through them.
func (s *PoolState) Clone() *PoolState {
	clone := *s
	if s.Liquidity != nil {
		clone.Liquidity = new(big.Int).Set(s.Liquidity)
	}
	if s.SqrtPriceQ64 != nil {
		clone.SqrtPriceQ64 = new(big.Int).Set(s.SqrtPriceQ64)
	}
	return &clone
}

// Age returns how long ago this state was last updated, relative to now.
func (s *PoolState) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.LastUpdatedUnix, 0))
}
