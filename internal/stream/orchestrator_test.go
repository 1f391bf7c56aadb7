package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/arb"
	"github.com/pbelltech0/solana-streamer/internal/config"
	"github.com/pbelltech0/solana-streamer/internal/health"
	"github.com/pbelltech0/solana-streamer/internal/oracle"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/pbelltech0/solana-streamer/internal/ranker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a scripted EventSource: it emits a fixed event slice
// then blocks (events channel stays open) until closed, simulating a
// transport that delivers an initial batch and otherwise stays idle.
type fakeSource struct {
	events     chan Event
	errs       chan error
	connectErr error
	closed     bool
	mu         sync.Mutex
}

func newFakeSource(scripted []Event, connectErr error) *fakeSource {
	s := &fakeSource{
		events:     make(chan Event, len(scripted)+1),
		errs:       make(chan error, 1),
		connectErr: connectErr,
	}
	for _, ev := range scripted {
		s.events <- ev
	}
	return s
}

func (s *fakeSource) Connect(ctx context.Context) error { return s.connectErr }
func (s *fakeSource) Events() <-chan Event              { return s.events }
func (s *fakeSource) Errs() <-chan error                { return s.errs }
func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.events)
		s.closed = true
	}
	return nil
}

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

func cpmmState(id poolstate.PoolId, a, b poolstate.TokenId, reserveA, reserveB uint64, feeBps uint16) *poolstate.PoolState {
	return &poolstate.PoolState{
		PoolId:          id,
		ProtocolVariant: poolstate.VariantCPMMClassic,
		TokenA:          a,
		TokenB:          b,
		ReserveA:        reserveA,
		ReserveB:        reserveB,
		TotalFeeBps:     feeBps,
		LastUpdatedUnix: time.Now().Unix(),
	}
}

// alwaysOracle accepts every candidate at zero deviation.
type alwaysOracle struct{}

func (alwaysOracle) Lookup(base, quote string) (oracle.Record, bool) {
	return oracle.Record{NormalizedPrice: 1.0, Confidence: 0.001, LastUpdateUnix: time.Now().Unix()}, true
}

func testOrchestrator(callback Callback) (*Orchestrator, *poolstate.Store) {
	store := poolstate.NewStore(60, nil)
	rank := ranker.New(100, 30*time.Second)
	validator := oracle.New(oracle.PermissiveConfig(), alwaysOracle{})
	counters := health.NewCounters(prometheus.NewRegistry())
	timings := config.OrchestratorTimings{
		ScanInterval:         time.Hour, // don't let the ticker fire during the test
		HeartbeatTimeout:     time.Hour,
		ReconnectBase:        time.Millisecond,
		ReconnectCap:         time.Millisecond,
		ReconnectMaxAttempts: 1,
		OutputChannelSize:    16,
	}
	orch := New(store, rank, validator, counters, nil, arb.DefaultConfig(), arb.DefaultProfitConfig(), timings, callback)
	return orch, store
}

func TestRunAppliesPoolStateUpdateAndShutsDownOnContextCancel(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	state := cpmmState(poolID(1), base, quote, 10_000_000_000, 10_000_000_000, 25)

	orch, store := testOrchestrator(nil)
	source := newFakeSource([]Event{{Kind: KindPoolStateUpdate, PoolState: state}}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := orch.Run(ctx, func() EventSource { return source })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got, ok := store.Get(poolID(1))
	require.True(t, ok)
	assert.Equal(t, uint64(10_000_000_000), got.ReserveA)
}

func TestSwapEventTriggersTargetedScanAndCallback(t *testing.T) {
	base, quote := tokenID(1), tokenID(2)
	x := cpmmState(poolID(1), base, quote, 10_000_000_000, 10_000_000_000, 25)
	y := cpmmState(poolID(2), base, quote, 5_000_000_000, 5_100_000_000, 25)
	// same-variant pairs are skipped by default, so y needs a different variant tag
	y.ProtocolVariant = poolstate.VariantCPMMStable

	var mu sync.Mutex
	var accepted []AcceptedOpportunity
	callback := func(a AcceptedOpportunity) {
		mu.Lock()
		defer mu.Unlock()
		accepted = append(accepted, a)
	}

	orch, _ := testOrchestrator(callback)
	source := newFakeSource([]Event{
		{Kind: KindPoolStateUpdate, PoolState: x},
		{Kind: KindPoolStateUpdate, PoolState: y},
		{Kind: KindSwap, SwapPoolId: poolID(2), SwapObservedAt: time.Now().Unix()},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = orch.Run(ctx, func() EventSource { return source })

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, accepted)
	assert.Greater(t, accepted[0].Opportunity.NetProfit, int64(0))
}

func TestRunReturnsErrorWhenReconnectAttemptsExhausted(t *testing.T) {
	orch, _ := testOrchestrator(nil)
	source := newFakeSource(nil, assertConnectError)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := orch.Run(ctx, func() EventSource { return source })
	assert.Error(t, err)
}

var assertConnectError = assertError{"connect refused"}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
