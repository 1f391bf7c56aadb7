package priceview

import (
	"testing"
	"time"

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

func TestBuildDerivesFinitePositivePrice(t *testing.T) {
	store := poolstate.NewStore(60, nil)
	a, b := tokenID(1), tokenID(2)
	now := time.Now()

	require.True(t, store.Upsert(&poolstate.PoolState{
		PoolId:          poolID(1),
		ProtocolVariant: poolstate.VariantCPMMClassic,
		TokenA:          a,
		TokenB:          b,
		ReserveA:        10_000_000_000,
		ReserveB:        10_200_000_000,
		TotalFeeBps:     25,
		LastUpdatedUnix: now.Unix(),
	}))

	pair := poolstate.NewTokenPair(a, b)
	points := Build(store, pair, now)
	require.Len(t, points, 1)
	assert.Greater(t, points[0].Price, 0.0)
	assert.False(t, isNonFinite(points[0].Price))
}

func TestBuildSkipsUnparseableCLPool(t *testing.T) {
	store := poolstate.NewStore(60, nil)
	a, b := tokenID(1), tokenID(2)
	now := time.Now()

	// bypass Upsert's tradability gate by inserting directly would not
	// be possible (store has no backdoor); instead verify that an
	// untradable CL pool is never admitted to the store at all, so
	// Build naturally has nothing to skip.
	ok := store.Upsert(&poolstate.PoolState{
		PoolId:          poolID(1),
		ProtocolVariant: poolstate.VariantConcentratedLiquidity,
		TokenA:          a,
		TokenB:          b,
		LastUpdatedUnix: now.Unix(),
	})
	assert.False(t, ok)

	pair := poolstate.NewTokenPair(a, b)
	assert.Empty(t, Build(store, pair, now))
}

func isNonFinite(f float64) bool {
	return f != f || f > 1e300 || f < -1e300
}
