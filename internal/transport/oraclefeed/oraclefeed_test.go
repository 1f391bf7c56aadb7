package oraclefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pbelltech0/solana-streamer/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollOneWritesNormalizedRecordIntoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(replySchema{
			Price:       100_000,
			Expo:        -3, // 100.0
			Confidence:  50,
			EMAPrice:    99_500,
			PublishTime: time.Now().Unix(),
		})
	}))
	defer srv.Close()

	cache := oracle.NewCache()
	poller := New(srv.URL, []FeedConfig{{Symbol: "SOL/USDC", Base: "sol", Quote: "usdc", FeedID: "feed1"}}, cache, nil)

	err := poller.pollOne(context.Background(), poller.feeds[0])
	require.NoError(t, err)

	record, ok := cache.Lookup("sol", "usdc")
	require.True(t, ok)
	assert.InDelta(t, 100.0, record.NormalizedPrice, 1e-9)
	assert.InDelta(t, 0.05, record.Confidence, 1e-9)
}

func TestPollOneReturnsErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := oracle.NewCache()
	poller := New(srv.URL, nil, cache, nil)
	err := poller.pollOne(context.Background(), FeedConfig{FeedID: "feed1"})
	assert.Error(t, err)
}
