// Package oracle implements the oracle-validation layer of §4.6: it
// gates a candidate opportunity against an external price feed to
// suppress false positives from stale or manipulated pool state.
package oracle

import (
	"fmt"
	"math"
	"time"
)

// RejectReason enumerates the oracle gate failure modes, used as the
// opportunity-rejected-by-reason health counter key.
type RejectReason string

const (
	ReasonNone            RejectReason = ""
	ReasonNoOracle        RejectReason = "no-oracle"
	ReasonStaleOracle     RejectReason = "stale-oracle"
	ReasonWideConfidence  RejectReason = "wide-confidence"
	ReasonPriceDeviation  RejectReason = "price-deviation"
)

// Record is the normalized oracle reply for one (base, quote) pair,
// derived from the inbound feed reply schema of §6:
// {price (scaled), expo, confidence, ema_price, publish_time}.
// NormalizedPrice = price * 10^expo.
type Record struct {
	NormalizedPrice float64
	Confidence      float64 // absolute, same units as NormalizedPrice
	EMAPrice        float64 // carried through for a consumer that wants smoothed pricing; unused by the gates
	LastUpdateUnix  int64
}

// Config is a resolved oracle-validator configuration — the runtime
// counterpart of one of the three presets below, or a custom blend.
type Config struct {
	MaxStaleness    time.Duration
	MaxConfPct      float64
	MaxDeviationPct float64
	BothLegs        bool
}

// Presets from §4.6.
func StrictConfig() Config {
	return Config{MaxStaleness: 30 * time.Second, MaxConfPct: 0.5, MaxDeviationPct: 2, BothLegs: true}
}

func BalancedConfig() Config {
	return Config{MaxStaleness: 60 * time.Second, MaxConfPct: 1, MaxDeviationPct: 5, BothLegs: true}
}

func PermissiveConfig() Config {
	return Config{MaxStaleness: 120 * time.Second, MaxConfPct: 2, MaxDeviationPct: 10, BothLegs: false}
}

// ResolvePreset maps a config string ("strict" | "balanced" | "permissive")
// to its Config, defaulting to balanced per §4.6.
func ResolvePreset(name string) Config {
	switch name {
	case "strict":
		return StrictConfig()
	case "permissive":
		return PermissiveConfig()
	default:
		return BalancedConfig()
	}
}

// Candidate is the subset of an Opportunity the validator needs.
type Candidate struct {
	BuyPrice  float64
	SellPrice float64
}

// Verdict is the validator's output, per §4.6.
type Verdict struct {
	Accepted      bool
	Reason        RejectReason
	OraclePrice   float64
	PoolPrice     float64
	DeviationPct  float64
	ConfidencePct float64
}

// Feed looks up the oracle Record for a (base, quote) pair; a zero
// Record with ok=false models "no-oracle".
type Feed interface {
	Lookup(base, quote string) (Record, bool)
}

// Validator applies the gates of §4.6 against a Feed. It holds no
// mutable state itself; the Feed implementation owns its own cache
// and locking (§5: "the oracle cache is a concurrent map with
// per-entry read/write locks").
type Validator struct {
	cfg  Config
	feed Feed
}

// New builds a Validator for cfg against feed.
func New(cfg Config, feed Feed) *Validator {
	return &Validator{cfg: cfg, feed: feed}
}

// Validate runs the full gate sequence of §4.6 against a candidate for
// (base, quote), optionally also checking each leg's price
// independently when cfg.BothLegs is set. Validate is a pure function
// of its inputs (Config, Feed snapshot, Candidate) — identical inputs
// yield identical verdicts, satisfying invariant 9.
func (v *Validator) Validate(now time.Time, base, quote string, candidate Candidate) Verdict {
	record, ok := v.feed.Lookup(base, quote)
	if !ok {
		return Verdict{Accepted: false, Reason: ReasonNoOracle}
	}

	age := now.Unix() - record.LastUpdateUnix
	if age < 0 {
		age = 0
	}
	if time.Duration(age)*time.Second > v.cfg.MaxStaleness {
		return Verdict{Accepted: false, Reason: ReasonStaleOracle, OraclePrice: record.NormalizedPrice}
	}

	confPct := confidencePct(record)
	if confPct > v.cfg.MaxConfPct {
		return Verdict{Accepted: false, Reason: ReasonWideConfidence, OraclePrice: record.NormalizedPrice, ConfidencePct: confPct}
	}

	avgPoolPrice := (candidate.BuyPrice + candidate.SellPrice) / 2
	avgDeviationPct := deviationPct(avgPoolPrice, record.NormalizedPrice)
	if avgDeviationPct > v.cfg.MaxDeviationPct {
		return Verdict{Accepted: false, Reason: ReasonPriceDeviation, OraclePrice: record.NormalizedPrice, PoolPrice: avgPoolPrice, DeviationPct: avgDeviationPct, ConfidencePct: confPct}
	}

	if v.cfg.BothLegs {
		for _, legPrice := range []float64{candidate.BuyPrice, candidate.SellPrice} {
			legDeviation := deviationPct(legPrice, record.NormalizedPrice)
			if legDeviation > v.cfg.MaxDeviationPct {
				return Verdict{Accepted: false, Reason: ReasonPriceDeviation, OraclePrice: record.NormalizedPrice, PoolPrice: legPrice, DeviationPct: legDeviation, ConfidencePct: confPct}
			}
		}
	}

	return Verdict{
		Accepted:      true,
		Reason:        ReasonNone,
		OraclePrice:   record.NormalizedPrice,
		PoolPrice:     avgPoolPrice,
		DeviationPct:  avgDeviationPct,
		ConfidencePct: confPct,
	}
}

func confidencePct(r Record) float64 {
	if r.NormalizedPrice == 0 {
		return math.Inf(1)
	}
	return r.Confidence / r.NormalizedPrice * 100
}

func deviationPct(poolPrice, oraclePrice float64) float64 {
	if oraclePrice == 0 {
		return math.Inf(1)
	}
	return math.Abs(poolPrice-oraclePrice) / oraclePrice * 100
}

// NormalizePrice applies price * 10^expo, the reply-schema
// normalization rule of §6.
func NormalizePrice(price float64, expo int) (float64, error) {
	normalized := price * math.Pow(10, float64(expo))
	if math.IsNaN(normalized) || math.IsInf(normalized, 0) {
		return 0, fmt.Errorf("oracle: normalized price is non-finite")
	}
	return normalized, nil
}
