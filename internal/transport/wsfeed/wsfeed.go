// Package wsfeed is a reference websocket EventSource, grounded on
// original_source/market-streaming/src/ws_client.rs's subscribe/decode
// loop: connect, decode each inbound message into a stream.Event and
// forward it on a buffered channel. No subscribe frame is sent after
// connecting; events are read from whatever the endpoint streams.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/pbelltech0/solana-streamer/internal/stream"
	"go.uber.org/zap"
)

// wireEvent is the JSON envelope this adapter understands on the wire.
// No bit-exact format is mandated by the spec; this is one reasonable
// shape that carries the three required event variants.
type wireEvent struct {
	Kind string `json:"kind"` // "pool_state_update" | "swap" | "tick"
	Index uint64 `json:"index"`

	PoolId          string `json:"pool_id,omitempty"`
	ProtocolVariant int    `json:"protocol_variant,omitempty"`
	TokenA          string `json:"token_a,omitempty"`
	TokenB          string `json:"token_b,omitempty"`
	ReserveA        uint64 `json:"reserve_a,omitempty"`
	ReserveB        uint64 `json:"reserve_b,omitempty"`
	Liquidity       string `json:"liquidity,omitempty"`
	SqrtPriceQ64    string `json:"sqrt_price_q64,omitempty"`
	ActiveBinId     int32  `json:"active_bin_id,omitempty"`
	BinStepBps      uint16 `json:"bin_step_bps,omitempty"`
	TotalFeeBps     uint16 `json:"total_fee_bps,omitempty"`
	LastUpdatedUnix int64  `json:"last_updated_unix,omitempty"`

	SwapPoolId     string `json:"swap_pool_id,omitempty"`
	SwapObservedAt int64  `json:"swap_observed_at,omitempty"`

	TickUnix          int64              `json:"tick_unix,omitempty"`
	CumulativeMetrics map[string]float64 `json:"cumulative_metrics,omitempty"`
}

// Source is a gorilla/websocket-backed stream.EventSource.
type Source struct {
	url  string
	log  *zap.Logger
	conn *websocket.Conn

	events chan stream.Event
	errs   chan error
	done   chan struct{}
}

// New builds a Source that will dial url on Connect.
func New(url string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		url:    url,
		log:    logger.Named("wsfeed"),
		events: make(chan stream.Event, 256),
		errs:   make(chan error, 16),
		done:   make(chan struct{}),
	}
}

// Connect dials the websocket endpoint and starts the read loop.
func (s *Source) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("wsfeed: dial %s: %w", s.url, err)
	}
	s.conn = conn
	go s.readLoop()
	return nil
}

func (s *Source) readLoop() {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("wsfeed: read: %w", err):
			default:
			}
			return
		}

		ev, err := Decode(raw)
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("wsfeed: decode: %w", err):
			default:
			}
			continue
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func Decode(raw []byte) (stream.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return stream.Event{}, err
	}

	switch w.Kind {
	case "pool_state_update":
		state, err := toPoolState(w)
		if err != nil {
			return stream.Event{}, err
		}
		return stream.Event{Kind: stream.KindPoolStateUpdate, Index: w.Index, PoolState: state}, nil

	case "swap":
		var id poolstate.PoolId
		if err := hexInto(w.SwapPoolId, id[:]); err != nil {
			return stream.Event{}, err
		}
		return stream.Event{Kind: stream.KindSwap, Index: w.Index, SwapPoolId: id, SwapObservedAt: w.SwapObservedAt}, nil

	case "tick":
		return stream.Event{Kind: stream.KindTick, Index: w.Index, TickUnix: w.TickUnix, CumulativeMetrics: w.CumulativeMetrics}, nil

	default:
		return stream.Event{}, fmt.Errorf("wsfeed: unrecognized event kind %q", w.Kind)
	}
}

func toPoolState(w wireEvent) (*poolstate.PoolState, error) {
	var id poolstate.PoolId
	if err := hexInto(w.PoolId, id[:]); err != nil {
		return nil, err
	}
	var tokenA, tokenB poolstate.TokenId
	if err := hexInto(w.TokenA, tokenA[:]); err != nil {
		return nil, err
	}
	if err := hexInto(w.TokenB, tokenB[:]); err != nil {
		return nil, err
	}

	state := &poolstate.PoolState{
		PoolId:          id,
		ProtocolVariant: poolstate.Variant(w.ProtocolVariant),
		TokenA:          tokenA,
		TokenB:          tokenB,
		ReserveA:        w.ReserveA,
		ReserveB:        w.ReserveB,
		ActiveBinId:     w.ActiveBinId,
		BinStepBps:      w.BinStepBps,
		TotalFeeBps:     w.TotalFeeBps,
		LastUpdatedUnix: w.LastUpdatedUnix,
	}
	if w.Liquidity != "" {
		liq, ok := new(big.Int).SetString(w.Liquidity, 10)
		if !ok {
			return nil, fmt.Errorf("wsfeed: malformed liquidity %q", w.Liquidity)
		}
		state.Liquidity = liq
	}
	if w.SqrtPriceQ64 != "" {
		sp, ok := new(big.Int).SetString(w.SqrtPriceQ64, 10)
		if !ok {
			return nil, fmt.Errorf("wsfeed: malformed sqrt_price_q64 %q", w.SqrtPriceQ64)
		}
		state.SqrtPriceQ64 = sp
	}
	return state, nil
}

func hexInto(hexStr string, dst []byte) error {
	if hexStr == "" {
		return nil
	}
	trimmed := hexStr
	if len(trimmed) >= 2 && trimmed[:2] == "0x" {
		trimmed = trimmed[2:]
	}
	b, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return fmt.Errorf("malformed hex id %q", hexStr)
	}
	bs := b.Bytes()
	if len(bs) > len(dst) {
		return fmt.Errorf("hex id %q too long", hexStr)
	}
	copy(dst[len(dst)-len(bs):], bs)
	return nil
}

// Events implements stream.EventSource.
func (s *Source) Events() <-chan stream.Event { return s.events }

// Errs implements stream.EventSource.
func (s *Source) Errs() <-chan error { return s.errs }

// Close implements stream.EventSource.
func (s *Source) Close() error {
	close(s.done)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
