package ranker

import (
	"testing"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/arb"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opp(ev float64, observedUnix int64) arb.Opportunity {
	return arb.Opportunity{EVScore: ev, ObservedUnix: observedUnix}
}

func oppWithPools(ev float64, observedUnix int64, buyPool, sellPool byte) arb.Opportunity {
	o := opp(ev, observedUnix)
	o.BuyPool = poolstate.PoolId{buyPool}
	o.SellPool = poolstate.PoolId{sellPool}
	return o
}

func TestRescanCapsAtNMax(t *testing.T) {
	r := New(2, 30*time.Second)
	now := time.Now()
	r.Rescan([]arb.Opportunity{opp(10, now.Unix()), opp(30, now.Unix()), opp(20, now.Unix())}, now)

	assert.Equal(t, 2, r.Len())
	top := r.TopK(0)
	assert.Equal(t, 30.0, top[0].Opp.EVScore)
	assert.Equal(t, 20.0, top[1].Opp.EVScore)
}

func TestRescanSortsDescendingByEVScore(t *testing.T) {
	r := New(100, 30*time.Second)
	now := time.Now()
	r.Rescan([]arb.Opportunity{opp(5, now.Unix()), opp(50, now.Unix()), opp(25, now.Unix())}, now)

	top := r.TopK(0)
	require.Len(t, top, 3)
	assert.True(t, top[0].Opp.EVScore >= top[1].Opp.EVScore)
	assert.True(t, top[1].Opp.EVScore >= top[2].Opp.EVScore)
}

func TestExpireStaleMarksOldEntries(t *testing.T) {
	r := New(100, 30*time.Second)
	now := time.Now()
	r.Rescan([]arb.Opportunity{opp(10, now.Add(-time.Minute).Unix())}, now)

	expired := r.ExpireStale(now)
	assert.Equal(t, 1, expired)
	assert.Equal(t, StateExpired, r.TopK(0)[0].State)
}

func TestAcceptTransitionsRankedEntry(t *testing.T) {
	r := New(100, 30*time.Second)
	now := time.Now()
	r.Rescan([]arb.Opportunity{opp(10, now.Unix())}, now)

	id := r.TopK(0)[0].ID
	assert.True(t, r.Accept(id))
	assert.Equal(t, StateAccepted, r.TopK(0)[0].State)
}

func TestAcceptUnknownIDFails(t *testing.T) {
	r := New(100, 30*time.Second)
	assert.False(t, r.Accept("does-not-exist"))
}

func TestRescanSupersedesEntryNotReEmitted(t *testing.T) {
	r := New(100, 30*time.Second)
	now := time.Now()

	r.Rescan([]arb.Opportunity{oppWithPools(10, now.Unix(), 1, 2)}, now)
	require.Len(t, r.TopK(0), 1)
	assert.Equal(t, StateRanked, r.TopK(0)[0].State)

	r.Rescan([]arb.Opportunity{oppWithPools(20, now.Unix(), 3, 4)}, now)
	top := r.TopK(0)
	require.Len(t, top, 2)

	var sawSuperseded, sawRanked bool
	for _, e := range top {
		switch e.State {
		case StateSuperseded:
			sawSuperseded = true
			assert.Equal(t, poolstate.PoolId{1}, e.Opp.BuyPool)
		case StateRanked:
			sawRanked = true
			assert.Equal(t, poolstate.PoolId{3}, e.Opp.BuyPool)
		}
	}
	assert.True(t, sawSuperseded, "previously-ranked, not-re-emitted entry should transition to superseded")
	assert.True(t, sawRanked)

	// A third rescan that still doesn't re-emit pool 1 purges the
	// one-generation-old superseded tombstone.
	r.Rescan([]arb.Opportunity{oppWithPools(30, now.Unix(), 3, 4)}, now)
	top = r.TopK(0)
	require.Len(t, top, 1)
	assert.Equal(t, StateRanked, top[0].State)
}

func TestRescanReEmittedEntryStaysRankedWithNewID(t *testing.T) {
	r := New(100, 30*time.Second)
	now := time.Now()

	r.Rescan([]arb.Opportunity{oppWithPools(10, now.Unix(), 1, 2)}, now)
	firstID := r.TopK(0)[0].ID

	r.Rescan([]arb.Opportunity{oppWithPools(15, now.Unix(), 1, 2)}, now)
	top := r.TopK(0)
	require.Len(t, top, 1)
	assert.Equal(t, StateRanked, top[0].State)
	assert.NotEqual(t, firstID, top[0].ID)
}

func TestTopKNeverExceedsLength(t *testing.T) {
	r := New(100, 30*time.Second)
	now := time.Now()
	r.Rescan([]arb.Opportunity{opp(10, now.Unix())}, now)

	assert.Len(t, r.TopK(50), 1)
}
