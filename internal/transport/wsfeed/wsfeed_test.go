package wsfeed

import (
	"testing"

	"github.com/pbelltech0/solana-streamer/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePoolStateUpdate(t *testing.T) {
	raw := []byte(`{
		"kind": "pool_state_update",
		"index": 7,
		"pool_id": "0x0000000000000000000000000000000000000000000000000000000000000a",
		"token_a": "0x0000000000000000000000000000000000000000000000000000000000000001",
		"token_b": "0x0000000000000000000000000000000000000000000000000000000000000002",
		"reserve_a": 1000000,
		"reserve_b": 2000000,
		"total_fee_bps": 25,
		"last_updated_unix": 1700000000
	}`)

	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, stream.KindPoolStateUpdate, ev.Kind)
	require.NotNil(t, ev.PoolState)
	assert.Equal(t, uint64(1000000), ev.PoolState.ReserveA)
	assert.Equal(t, uint16(25), ev.PoolState.TotalFeeBps)
}

func TestDecodeSwap(t *testing.T) {
	raw := []byte(`{"kind": "swap", "swap_pool_id": "0x0a", "swap_observed_at": 42}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, stream.KindSwap, ev.Kind)
	assert.Equal(t, int64(42), ev.SwapObservedAt)
}

func TestDecodeTick(t *testing.T) {
	raw := []byte(`{"kind": "tick", "tick_unix": 99}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, stream.KindTick, ev.Kind)
	assert.Equal(t, int64(99), ev.TickUnix)
}

func TestDecodeUnrecognizedKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind": "mystery"}`))
	assert.Error(t, err)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}
