package poolstate

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxAgeSeconds is the tunable staleness horizon used both by
// pools_for_pair's freshness filter and by EvictStale.
const DefaultMaxAgeSeconds = 60

// Store is the authoritative PoolId -> PoolState map with a secondary
// TokenPair -> {PoolId} index. Per §5 it is the single heavily shared
// mutable resource in the system and is guarded by exactly one mutex;
// critical sections are kept to single-entry read-modify-write or a
// scan snapshot, never a long-running computation.
type Store struct {
	mu            sync.Mutex
	pools         map[PoolId]*PoolState
	pairIndex     map[TokenPair]map[PoolId]struct{}
	maxAgeSeconds int64
	log           *zap.Logger
}

// NewStore builds an empty store. maxAgeSeconds of 0 selects DefaultMaxAgeSeconds.
func NewStore(maxAgeSeconds int64, logger *zap.Logger) *Store {
	if maxAgeSeconds <= 0 {
		maxAgeSeconds = DefaultMaxAgeSeconds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pools:         make(map[PoolId]*PoolState),
		pairIndex:     make(map[TokenPair]map[PoolId]struct{}),
		maxAgeSeconds: maxAgeSeconds,
		log:           logger.Named("poolstate"),
	}
}

// Upsert inserts or overwrites a pool's state. An untradable state is a
// silent no-op per §4.1 — the transport may deliver partial or
// mid-mutation state, and callers observe the effect only on the next
// valid update. Returns true if the store was actually mutated.
func (st *Store) Upsert(state *PoolState) bool {
	if state == nil || !state.IsTradable() {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	existing, had := st.pools[state.PoolId]
	if had && state.LastUpdatedUnix < existing.LastUpdatedUnix {
		// last_updated_unix must be monotonically non-decreasing per pool_id.
		return false
	}

	st.pools[state.PoolId] = state.Clone()

	if !had {
		pair := state.Pair()
		set, ok := st.pairIndex[pair]
		if !ok {
			set = make(map[PoolId]struct{})
			st.pairIndex[pair] = set
		}
		set[state.PoolId] = struct{}{}
	}
	return true
}

// TouchLastTrade advances a pool's last-trade timestamp without
// otherwise mutating its state, used by the ingestor on swap events.
func (st *Store) TouchLastTrade(id PoolId, tradeUnix int64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	existing, ok := st.pools[id]
	if !ok {
		return false
	}
	if tradeUnix > existing.LastTradeUnix {
		existing.LastTradeUnix = tradeUnix
	}
	return true
}

// Get returns a clone of the pool's current state, never a handle into
// the store's interior.
func (st *Store) Get(id PoolId) (*PoolState, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.pools[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// PoolsForPair returns clones of every pool of the given pair fresher
// than maxAgeSeconds as of now, per §4.1.
func (st *Store) PoolsForPair(pair TokenPair, now time.Time) []*PoolState {
	st.mu.Lock()
	defer st.mu.Unlock()

	ids, ok := st.pairIndex[pair]
	if !ok {
		return nil
	}
	cutoff := now.Unix() - st.maxAgeSeconds
	out := make([]*PoolState, 0, len(ids))
	for id := range ids {
		s, ok := st.pools[id]
		if !ok {
			continue
		}
		if s.LastUpdatedUnix < cutoff {
			continue
		}
		out = append(out, s.Clone())
	}
	return out
}

// EvictStale removes every pool older than maxAgeSeconds as of now and
// reconciles the secondary index.
func (st *Store) EvictStale(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := now.Unix() - st.maxAgeSeconds
	evicted := 0
	for id, s := range st.pools {
		if s.LastUpdatedUnix >= cutoff {
			continue
		}
		pair := s.Pair()
		delete(st.pools, id)
		if set, ok := st.pairIndex[pair]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(st.pairIndex, pair)
			}
		}
		evicted++
	}
	if evicted > 0 {
		st.log.Debug("evicted stale pools", zap.Int("count", evicted))
	}
	return evicted
}

// Len returns the number of pools currently tracked, for health reporting.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pools)
}
