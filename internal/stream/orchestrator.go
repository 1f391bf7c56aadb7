package stream

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/arb"
	"github.com/pbelltech0/solana-streamer/internal/config"
	"github.com/pbelltech0/solana-streamer/internal/health"
	"github.com/pbelltech0/solana-streamer/internal/oracle"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/pbelltech0/solana-streamer/internal/ranker"
	"go.uber.org/zap"
)

// AcceptedOpportunity is what the consumer callback of §6 receives when
// the orchestrator does the end-to-end work: a ranked arbitrage
// candidate that also cleared the oracle gate.
type AcceptedOpportunity struct {
	Opportunity arb.Opportunity
	Verdict     oracle.Verdict
}

// Callback is the consumer-supplied sink of §6. It must be cheap —
// heavy work belongs off the event path.
type Callback func(AcceptedOpportunity)

// Orchestrator owns the event ingestor, drives scan passes, coordinates
// the oracle validator, and surfaces results to a consumer callback per
// §4.7. It is the system's single cooperative task; transport I/O and
// oracle fetch are left to the EventSource and oracle.Feed it is given.
type Orchestrator struct {
	store     *poolstate.Store
	rank      *ranker.Ranker
	validator *oracle.Validator
	health    *health.Counters
	log       *zap.Logger

	arbCfg    arb.Config
	profitCfg arb.ProfitConfig
	timings   config.OrchestratorTimings

	callback Callback
	out      chan Event // optional raw-event fanout, bounded per §4.7

	knownPairs map[poolstate.TokenPair]struct{}
}

// New builds an Orchestrator. callback may be nil if the caller only
// wants raw events via Out().
func New(
	store *poolstate.Store,
	rank *ranker.Ranker,
	validator *oracle.Validator,
	counters *health.Counters,
	logger *zap.Logger,
	arbCfg arb.Config,
	profitCfg arb.ProfitConfig,
	timings config.OrchestratorTimings,
	callback Callback,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:      store,
		rank:       rank,
		validator:  validator,
		health:     counters,
		log:        logger,
		arbCfg:     arbCfg,
		profitCfg:  profitCfg,
		timings:    timings,
		callback:   callback,
		out:        make(chan Event, timings.OutputChannelSize),
		knownPairs: make(map[poolstate.TokenPair]struct{}),
	}
}

// Out exposes the bounded raw-event channel for consumers doing their
// own analysis instead of (or alongside) the callback.
func (o *Orchestrator) Out() <-chan Event {
	return o.out
}

// Run drives the orchestrator until ctx is cancelled or reconnect
// attempts are exhausted. It owns reconnect/backoff, the periodic scan
// timer, and heartbeat-based degraded-health detection.
func (o *Orchestrator) Run(ctx context.Context, newSource func() EventSource) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		source := newSource()
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := source.Connect(connectCtx)
		cancel()
		if err != nil {
			attempt++
			if o.timings.ReconnectMaxAttempts > 0 && attempt > o.timings.ReconnectMaxAttempts {
				return fmt.Errorf("stream: reconnect attempts exhausted: %w", err)
			}
			o.health.Reconnect()
			o.log.Warn("connect failed, backing off", zap.Error(err), zap.Int("attempt", attempt))
			if !o.sleepBackoff(ctx, attempt) {
				return ctx.Err()
			}
			continue
		}

		attempt = 0
		runErr := o.runSession(ctx, source)
		source.Close()
		if runErr == nil {
			return ctx.Err() // clean shutdown via ctx cancellation
		}

		attempt++
		if o.timings.ReconnectMaxAttempts > 0 && attempt > o.timings.ReconnectMaxAttempts {
			return fmt.Errorf("stream: reconnect attempts exhausted: %w", runErr)
		}
		o.health.Reconnect()
		o.log.Warn("session ended, reconnecting", zap.Error(runErr), zap.Int("attempt", attempt))
		if !o.sleepBackoff(ctx, attempt) {
			return ctx.Err()
		}
	}
}

// sleepBackoff sleeps min(base*2^attempt, cap) and returns false if ctx
// was cancelled first.
func (o *Orchestrator) sleepBackoff(ctx context.Context, attempt int) bool {
	base := o.timings.ReconnectBase
	cap_ := o.timings.ReconnectCap
	factor := math.Pow(2, float64(attempt))
	wait := time.Duration(float64(base) * factor)
	if wait > cap_ {
		wait = cap_
	}
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

// runSession is one connected session: demultiplex events until the
// transport closes, the context is cancelled, or the heartbeat timeout
// forces a reconnect. Returns nil only on clean ctx cancellation.
func (o *Orchestrator) runSession(ctx context.Context, source EventSource) error {
	ig := newIngestor(o.store, o.health, Filter{})

	scanTicker := time.NewTicker(o.timings.ScanInterval)
	defer scanTicker.Stop()
	heartbeat := time.NewTicker(o.timings.HeartbeatTimeout)
	defer heartbeat.Stop()

	lastEvent := time.Now()
	o.health.SetDegraded(false)
	breaker := newCircuitBreaker(5*time.Minute, 20)

	events := source.Events()
	errs := source.Errs()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("stream: event channel closed")
			}
			lastEvent = time.Now()
			o.health.SetDegraded(false)
			o.dispatchRaw(ev)
			pair, shouldScan := ig.apply(ev, lastEvent)
			if shouldScan {
				o.scanPair(pair, lastEvent)
			}

		case err, ok := <-errs:
			if !ok {
				continue
			}
			o.log.Warn("transport error", zap.Error(err))
			if breaker.recordError(time.Now(), false) {
				return fmt.Errorf("stream: circuit breaker tripped at %.1f errors/hour: %w", breaker.errorRate(), err)
			}

		case now := <-scanTicker.C:
			o.rescanAll(now)

		case <-heartbeat.C:
			if time.Since(lastEvent) >= o.timings.HeartbeatTimeout {
				o.health.SetDegraded(true)
				return fmt.Errorf("stream: heartbeat timeout: no event for %s", o.timings.HeartbeatTimeout)
			}
		}
	}
}

// dispatchRaw tracks known pairs and forwards raw events to Out(),
// dropping and counting on back-pressure per §4.7/§7.
func (o *Orchestrator) dispatchRaw(ev Event) {
	if ev.Kind == KindPoolStateUpdate && ev.PoolState != nil {
		o.knownPairs[ev.PoolState.Pair()] = struct{}{}
	}
	select {
	case o.out <- ev:
	default:
		o.health.Drop()
	}
}

// scanPair runs a targeted scan for one pair (swap-triggered, §4.7) and
// merges its fresh opportunities into the ranker alongside whatever the
// ranker already holds for other pairs.
func (o *Orchestrator) scanPair(pair poolstate.TokenPair, now time.Time) {
	states := o.store.PoolsForPair(pair, now)
	fresh := arb.Search(pair, states, o.arbCfg, o.profitCfg, now)
	o.emit(fresh)

	existing := o.rank.TopK(0)
	merged := make([]arb.Opportunity, 0, len(existing)+len(fresh))
	for _, e := range existing {
		// Only actively-ranked entries for other pairs carry forward;
		// superseded/expired/accepted tombstones must not be resurrected
		// as if freshly observed.
		if e.State == ranker.StateRanked && e.Opp.Pair != pair {
			merged = append(merged, e.Opp)
		}
	}
	merged = append(merged, fresh...)
	o.rank.Rescan(merged, now)
	o.validateFresh(fresh, now)
}

// rescanAll runs the periodic full rescan of §4.7 across every pair the
// ingestor has observed (or the configured focus subset).
func (o *Orchestrator) rescanAll(now time.Time) {
	pairs := o.arbCfg.FocusPairs
	if len(pairs) == 0 {
		pairs = make([]poolstate.TokenPair, 0, len(o.knownPairs))
		for p := range o.knownPairs {
			pairs = append(pairs, p)
		}
	}

	var all []arb.Opportunity
	for _, pair := range pairs {
		states := o.store.PoolsForPair(pair, now)
		all = append(all, arb.Search(pair, states, o.arbCfg, o.profitCfg, now)...)
	}
	o.emit(all)
	o.rank.Rescan(all, now)
	o.rank.ExpireStale(now)
	o.validateFresh(all, now)
}

func (o *Orchestrator) emit(opps []arb.Opportunity) {
	for range opps {
		o.health.OpportunityEmitted()
	}
}

// validateFresh runs each freshly-emitted opportunity through the
// oracle gate and forwards accepted ones to the consumer callback.
func (o *Orchestrator) validateFresh(opps []arb.Opportunity, now time.Time) {
	if o.validator == nil {
		return
	}
	for _, opp := range opps {
		verdict := o.validator.Validate(now, opp.Pair.Base.String(), opp.Pair.Quote.String(), oracle.Candidate{
			BuyPrice:  opp.BuyPrice,
			SellPrice: opp.SellPrice,
		})
		if verdict.Accepted {
			o.health.OpportunityAccepted()
			if o.callback != nil {
				o.callback(AcceptedOpportunity{Opportunity: opp, Verdict: verdict})
			}
		} else {
			o.health.OpportunityRejected(string(verdict.Reason))
		}
	}
}
