// Package oraclefeed is a reference Pyth-style HTTP oracle poller,
// grounded on original_source/src/streaming/pyth_price_monitor.rs's
// PythPriceMonitor: on an interval it fetches each configured feed's
// {price, expo, confidence, ema_price, publish_time} and writes the
// normalized Record into an oracle.Cache, which itself implements
// oracle.Feed for the validator to read.
package oraclefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/oracle"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FeedConfig names one (base, quote) pair and the oracle endpoint that
// prices it, per §6's per-feed configuration schema.
type FeedConfig struct {
	Symbol        string
	Base          string
	Quote         string
	FeedID        string
	MaxStalenessS int
	MaxConfPct    float64
}

// replySchema is the inbound oracle reply of §6:
// {price (scaled), expo, confidence, ema_price, publish_time}.
type replySchema struct {
	Price       float64 `json:"price"`
	Expo        int     `json:"expo"`
	Confidence  float64 `json:"confidence"`
	EMAPrice    float64 `json:"ema_price"`
	PublishTime int64   `json:"publish_time"`
}

// Poller periodically fetches each configured feed and writes it into
// a Cache. It is not itself a stream.EventSource — the oracle feed is a
// request/reply side-channel, not part of the inbound event stream.
type Poller struct {
	baseURL string
	feeds   []FeedConfig
	cache   *oracle.Cache
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New builds a Poller that fetches from baseURL (a Pyth-style HTTP
// endpoint) and writes results into cache. The limiter caps the
// request rate across all configured feeds at 4/s (burst 4) so a large
// feed list doesn't hammer the upstream oracle API in a single tick.
func New(baseURL string, feeds []FeedConfig, cache *oracle.Cache, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		baseURL: baseURL,
		feeds:   feeds,
		cache:   cache,
		client:  &http.Client{Timeout: 2 * time.Second}, // §5's ~2s oracle-fetch budget
		limiter: rate.NewLimiter(rate.Limit(4), 4),
		log:     logger.Named("oraclefeed"),
	}
}

// Run polls every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	for _, f := range p.feeds {
		if err := p.pollOne(ctx, f); err != nil {
			p.log.Warn("oracle fetch failed", zap.String("symbol", f.Symbol), zap.Error(err))
		}
	}
}

func (p *Poller) pollOne(ctx context.Context, f FeedConfig) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/v1/price/%s", p.baseURL, f.FeedID)
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	var reply replySchema
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}

	normalized, err := oracle.NormalizePrice(reply.Price, reply.Expo)
	if err != nil {
		return fmt.Errorf("normalize price: %w", err)
	}

	scale := math.Pow(10, float64(reply.Expo))
	p.cache.Update(f.Base, f.Quote, oracle.Record{
		NormalizedPrice: normalized,
		Confidence:      reply.Confidence * scale,
		EMAPrice:        reply.EMAPrice * scale,
		LastUpdateUnix:  reply.PublishTime,
	})
	return nil
}
