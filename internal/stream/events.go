// Package stream implements the stream orchestrator of §4.7: it owns
// the transport subscription, demultiplexes typed events into the
// pool-state store, drives periodic and swap-triggered arbitrage
// scans, and surfaces accepted opportunities to a consumer callback.
package stream

import "github.com/pbelltech0/solana-streamer/internal/poolstate"

// Kind discriminates the minimum required event variants of §6.
type Kind int

const (
	KindPoolStateUpdate Kind = iota
	KindSwap
	KindTick
)

func (k Kind) String() string {
	switch k {
	case KindPoolStateUpdate:
		return "pool-state-update"
	case KindSwap:
		return "swap"
	case KindTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is the typed union the orchestrator consumes from a transport.
// Index is an optional in-stream sequence number enabling ordering
// checks (§6); transports that don't provide one may leave it at 0.
type Event struct {
	Kind  Kind
	Index uint64

	// KindPoolStateUpdate
	PoolState *poolstate.PoolState

	// KindSwap
	SwapPoolId     poolstate.PoolId
	SwapObservedAt int64

	// KindTick
	TickUnix          int64
	CumulativeMetrics map[string]float64
}

// Filter allows inclusion/exclusion of event kinds per §6's sub-filter.
type Filter struct {
	Allow map[Kind]bool // nil means allow everything
}

// Admits reports whether kind passes this filter.
func (f Filter) Admits(kind Kind) bool {
	if f.Allow == nil {
		return true
	}
	return f.Allow[kind]
}
