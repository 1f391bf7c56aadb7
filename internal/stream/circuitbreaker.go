package stream

import "time"

// circuitBreaker tracks transport/decode errors within a sliding window
// and trips when too many accumulate, forcing a reconnect independent
// of the per-connection backoff in Run. Adapted from the teacher's
// liquidity-repositioning CircuitBreaker (time-windowed error count,
// immediate trip on a critical error) to this system's event-decode
// and transport-error taxonomy.
type circuitBreaker struct {
	window       time.Duration
	threshold    int
	recentErrors []time.Time
	tripped      bool
}

func newCircuitBreaker(window time.Duration, threshold int) *circuitBreaker {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if threshold <= 0 {
		threshold = 5
	}
	return &circuitBreaker{window: window, threshold: threshold}
}

// recordError records an error at now and reports whether the breaker
// has tripped (critical errors trip immediately, others count toward
// the windowed threshold).
func (cb *circuitBreaker) recordError(now time.Time, critical bool) bool {
	if critical {
		cb.tripped = true
		return true
	}

	cutoff := now.Add(-cb.window)
	kept := cb.recentErrors[:0]
	for _, t := range cb.recentErrors {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	cb.recentErrors = append(kept, now)

	if len(cb.recentErrors) >= cb.threshold {
		cb.tripped = true
	}
	return cb.tripped
}

// reset clears the breaker after a successful reconnect.
func (cb *circuitBreaker) reset() {
	cb.recentErrors = nil
	cb.tripped = false
}

// errorRate returns errors-per-hour within the current window.
func (cb *circuitBreaker) errorRate() float64 {
	if len(cb.recentErrors) == 0 {
		return 0
	}
	return float64(len(cb.recentErrors)) / cb.window.Hours()
}
