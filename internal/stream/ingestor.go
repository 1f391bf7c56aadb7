package stream

import (
	"time"

	"github.com/pbelltech0/solana-streamer/internal/health"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
)

// ingestor applies decoded events to the pool-state store, per §4.7's
// demultiplexing rule: pool-state events upsert, swap events touch
// last-trade time and report their pair for a targeted rescan, tick
// events are left to the orchestrator's periodic-rescan timer.
type ingestor struct {
	store   *poolstate.Store
	health  *health.Counters
	filter  Filter
}

func newIngestor(store *poolstate.Store, counters *health.Counters, filter Filter) *ingestor {
	return &ingestor{store: store, health: counters, filter: filter}
}

// apply processes one event and reports the pair that needs a
// swap-triggered scan, if any (§4.7: "swap events -> scan_for_pair(pair)").
func (ig *ingestor) apply(ev Event, now time.Time) (pair poolstate.TokenPair, scan bool) {
	if !ig.filter.Admits(ev.Kind) {
		return poolstate.TokenPair{}, false
	}
	ig.health.EventReceived()

	switch ev.Kind {
	case KindPoolStateUpdate:
		if ev.PoolState == nil {
			return poolstate.TokenPair{}, false
		}
		ig.health.EventDecoded()
		if ig.store.Upsert(ev.PoolState) {
			ig.health.UpdateApplied()
		}
		return poolstate.TokenPair{}, false

	case KindSwap:
		ig.health.EventDecoded()
		state, ok := ig.store.Get(ev.SwapPoolId)
		if !ok {
			return poolstate.TokenPair{}, false
		}
		tradeUnix := ev.SwapObservedAt
		if tradeUnix == 0 {
			tradeUnix = now.Unix()
		}
		ig.store.TouchLastTrade(ev.SwapPoolId, tradeUnix)
		return state.Pair(), true

	case KindTick:
		ig.health.EventDecoded()
		return poolstate.TokenPair{}, false

	default:
		return poolstate.TokenPair{}, false
	}
}
