// Package ranker implements the opportunity ranker of §4.5: an ordered
// collection of arb.Opportunity capped at N_MAX, sorted by ev_score
// descending, with the new -> ranked -> {superseded | expired | accepted}
// lifecycle.
package ranker

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbelltech0/solana-streamer/internal/arb"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
)

// Lifecycle is the state machine per §4.5.
type Lifecycle int

const (
	StateNew Lifecycle = iota
	StateRanked
	StateSuperseded
	StateExpired
	StateAccepted
)

func (l Lifecycle) String() string {
	switch l {
	case StateRanked:
		return "ranked"
	case StateSuperseded:
		return "superseded"
	case StateExpired:
		return "expired"
	case StateAccepted:
		return "accepted"
	default:
		return "new"
	}
}

// Entry pairs an Opportunity with its ranker-assigned identity and lifecycle state.
type Entry struct {
	ID        string
	Opp       arb.Opportunity
	State     Lifecycle
	RankedAt  time.Time
}

// Ranker is guarded by its own lock, separate from the pool-state
// store's, since it is read by consumer tasks different from the ones
// that write it (§5). Rescans replace the collection atomically.
type Ranker struct {
	mu      sync.RWMutex
	entries []Entry
	nMax    int
	ttl     time.Duration
}

// New builds a Ranker capped at nMax (default 100) with expiration ttl (default 30s).
func New(nMax int, ttl time.Duration) *Ranker {
	if nMax <= 0 {
		nMax = 100
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Ranker{nMax: nMax, ttl: ttl}
}

// oppKey identifies "the same opportunity" across rescans: the same
// directed buy/sell pool combination for the same pair. Opportunity
// fields beyond these (trade size, profit, score) are recomputed every
// scan and don't affect identity.
type oppKey struct {
	Pair     poolstate.TokenPair
	BuyPool  poolstate.PoolId
	SellPool poolstate.PoolId
}

func keyOf(o arb.Opportunity) oppKey {
	return oppKey{Pair: o.Pair, BuyPool: o.BuyPool, SellPool: o.SellPool}
}

// Rescan replaces the ranker's contents with the result of a full scan
// pass: any previously-ranked opportunity not re-emitted this round
// transitions to superseded, per §4.5, and is retained for one more
// rescan so TopK can observe the transition before it is purged; such
// tombstones are kept only while the collection has room under N_MAX,
// highest ev_score first. New admissions get a fresh ID. Opportunities
// are kept sorted by ev_score descending and capped at N_MAX.
func (r *Ranker) Rescan(fresh []arb.Opportunity, now time.Time) {
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].EVScore > fresh[j].EVScore
	})
	if len(fresh) > r.nMax {
		fresh = fresh[:r.nMax]
	}

	freshKeys := make(map[oppKey]struct{}, len(fresh))
	for _, opp := range fresh {
		freshKeys[keyOf(opp)] = struct{}{}
	}

	entries := make([]Entry, 0, len(fresh))
	for _, opp := range fresh {
		entries = append(entries, Entry{
			ID:       uuid.New().String(),
			Opp:      opp,
			State:    StateRanked,
			RankedAt: now,
		})
	}

	r.mu.Lock()
	for _, old := range r.entries {
		if len(entries) >= r.nMax {
			break // no room left under N_MAX for tombstones
		}
		if old.State != StateRanked {
			continue // already-terminal entries had their one generation of visibility
		}
		if _, reEmitted := freshKeys[keyOf(old.Opp)]; reEmitted {
			continue // re-emitted this round under a fresh entry above
		}
		old.State = StateSuperseded
		entries = append(entries, old)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Opp.EVScore > entries[j].Opp.EVScore
	})
	r.entries = entries
	r.mu.Unlock()
}

// TopK returns a read-only snapshot of up to k entries, highest
// ev_score first. k <= 0 returns every entry.
func (r *Ranker) TopK(k int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k <= 0 || k > len(r.entries) {
		k = len(r.entries)
	}
	out := make([]Entry, k)
	copy(out, r.entries[:k])
	return out
}

// ExpireStale marks any entry older than ttl as expired; returns the
// count transitioned. Entries are updated in place under the write lock,
// so readers never observe a partial pass.
func (r *Ranker) ExpireStale(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for i := range r.entries {
		if r.entries[i].State == StateRanked && now.Sub(time.Unix(r.entries[i].Opp.ObservedUnix, 0)) > r.ttl {
			r.entries[i].State = StateExpired
			expired++
		}
	}
	return expired
}

// Accept marks the entry with the given ID as accepted — the only
// externally-driven transition (§4.5: read-only otherwise). Returns
// false if no ranked entry with that ID exists.
func (r *Ranker) Accept(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].ID == id && r.entries[i].State == StateRanked {
			r.entries[i].State = StateAccepted
			return true
		}
	}
	return false
}

// Len returns the current entry count, for health reporting.
func (r *Ranker) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
