// Package health exposes the counters §7 mandates as the system's
// user-visible failure surface, backed by prometheus so the same
// figures can be scraped or read in-process via Snapshot.
package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the health-counter surface of §7, readable without scraping.
type Snapshot struct {
	EventsReceived           int64
	EventsDecoded            int64
	UpdatesApplied           int64
	OpportunitiesEmitted     int64
	OpportunitiesAccepted    int64
	OpportunitiesRejected    map[string]int64 // keyed by reject reason
	Reconnects               int64
	Drops                    int64
	Degraded                 bool
}

// Counters is the orchestrator's health surface: a prometheus registry
// plus an in-process mirror for callers that don't want to scrape.
type Counters struct {
	mu sync.Mutex

	eventsReceived        prometheus.Counter
	eventsDecoded         prometheus.Counter
	updatesApplied        prometheus.Counter
	opportunitiesEmitted  prometheus.Counter
	opportunitiesAccepted prometheus.Counter
	opportunitiesRejected *prometheus.CounterVec
	reconnects            prometheus.Counter
	drops                 prometheus.Counter

	mirror Snapshot
	degraded bool
}

// NewCounters registers the health metrics on reg and returns a Counters
// ready to record events. Pass prometheus.NewRegistry() for an isolated
// registry (e.g. in tests) or prometheus.DefaultRegisterer's registry in production.
func NewCounters(reg prometheus.Registerer) *Counters {
	c := &Counters{
		eventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_events_received_total",
			Help: "Total transport events received.",
		}),
		eventsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_events_decoded_total",
			Help: "Total transport events successfully decoded.",
		}),
		updatesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_pool_updates_applied_total",
			Help: "Total pool-state updates applied to the store.",
		}),
		opportunitiesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_opportunities_emitted_total",
			Help: "Total candidate opportunities emitted by the search stage.",
		}),
		opportunitiesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_opportunities_accepted_total",
			Help: "Total opportunities accepted by the oracle validator.",
		}),
		opportunitiesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamer_opportunities_rejected_total",
			Help: "Total opportunities rejected, by reason.",
		}, []string{"reason"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_reconnects_total",
			Help: "Total transport reconnect attempts.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_dropped_total",
			Help: "Total items dropped to back-pressure.",
		}),
		mirror: Snapshot{OpportunitiesRejected: make(map[string]int64)},
	}
	if reg != nil {
		reg.MustRegister(
			c.eventsReceived, c.eventsDecoded, c.updatesApplied,
			c.opportunitiesEmitted, c.opportunitiesAccepted,
			c.opportunitiesRejected, c.reconnects, c.drops,
		)
	}
	return c
}

func (c *Counters) EventReceived() {
	c.eventsReceived.Inc()
	c.mu.Lock()
	c.mirror.EventsReceived++
	c.mu.Unlock()
}

func (c *Counters) EventDecoded() {
	c.eventsDecoded.Inc()
	c.mu.Lock()
	c.mirror.EventsDecoded++
	c.mu.Unlock()
}

func (c *Counters) UpdateApplied() {
	c.updatesApplied.Inc()
	c.mu.Lock()
	c.mirror.UpdatesApplied++
	c.mu.Unlock()
}

func (c *Counters) OpportunityEmitted() {
	c.opportunitiesEmitted.Inc()
	c.mu.Lock()
	c.mirror.OpportunitiesEmitted++
	c.mu.Unlock()
}

func (c *Counters) OpportunityAccepted() {
	c.opportunitiesAccepted.Inc()
	c.mu.Lock()
	c.mirror.OpportunitiesAccepted++
	c.mu.Unlock()
}

func (c *Counters) OpportunityRejected(reason string) {
	c.opportunitiesRejected.WithLabelValues(reason).Inc()
	c.mu.Lock()
	c.mirror.OpportunitiesRejected[reason]++
	c.mu.Unlock()
}

func (c *Counters) Reconnect() {
	c.reconnects.Inc()
	c.mu.Lock()
	c.mirror.Reconnects++
	c.mu.Unlock()
}

func (c *Counters) Drop() {
	c.drops.Inc()
	c.mu.Lock()
	c.mirror.Drops++
	c.mu.Unlock()
}

// SetDegraded marks liveness degraded or healthy, per §4.7's heartbeat-timeout reporting.
func (c *Counters) SetDegraded(degraded bool) {
	c.mu.Lock()
	c.degraded = degraded
	c.mu.Unlock()
}

// Snapshot returns a copy of the in-process counter mirror.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	rejected := make(map[string]int64, len(c.mirror.OpportunitiesRejected))
	for k, v := range c.mirror.OpportunitiesRejected {
		rejected[k] = v
	}
	s := c.mirror
	s.OpportunitiesRejected = rejected
	s.Degraded = c.degraded
	return s
}
