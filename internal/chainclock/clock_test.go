package chainclock

import (
	"context"
	"testing"
	"time"

	"pooled-raffle/internal/config"

	rpccoretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClock(wall time.Time) *Clock {
	c := New(config.Config{}, nil)
	c.wall = func() time.Time { return wall }
	return c
}

func TestFallsBackToWallClock(t *testing.T) {
	wall := time.Unix(5_000, 0)
	c := newTestClock(wall)
	assert.Equal(t, wall, c.Now())
	assert.Zero(t, c.Height())
}

func TestObserveIsMonotonic(t *testing.T) {
	c := newTestClock(time.Unix(9_000, 0))
	t10 := time.Unix(1_000, 0)

	assert.True(t, c.Observe(10, t10))
	assert.Equal(t, t10, c.Now())
	assert.False(t, c.Observe(9, time.Unix(2_000, 0)))
	assert.False(t, c.Observe(10, time.Unix(2_000, 0)))
	assert.Equal(t, t10, c.Now())
	assert.Equal(t, int64(10), c.Height())
}

func TestHandleNewBlock(t *testing.T) {
	c := newTestClock(time.Unix(9_000, 0))
	blockTime := time.Unix(1_234, 0).UTC()
	blk := &cmttypes.Block{Header: cmttypes.Header{Height: 7, Time: blockTime}}

	c.handleNewBlock(rpccoretypes.ResultEvent{Data: cmttypes.EventDataNewBlock{Block: blk}})
	assert.Equal(t, int64(7), c.Height())
	assert.Equal(t, blockTime, c.Now())

	next := &cmttypes.Block{Header: cmttypes.Header{Height: 8, Time: blockTime.Add(time.Second)}}
	c.handleNewBlock(rpccoretypes.ResultEvent{Data: &cmttypes.EventDataNewBlock{Block: next}})
	assert.Equal(t, int64(8), c.Height())

	c.handleNewBlock(rpccoretypes.ResultEvent{Data: "garbage"})
	c.handleNewBlock(rpccoretypes.ResultEvent{Data: cmttypes.EventDataNewBlock{}})
	assert.Equal(t, int64(8), c.Height())
}

func TestStaleAfterWatchdogTimeout(t *testing.T) {
	wall := time.Unix(10_000, 0)
	c := newTestClock(wall)
	c.Observe(1, wall)
	assert.False(t, c.stale())

	c.wall = func() time.Time { return wall.Add(watchdogTimeout + time.Second) }
	assert.True(t, c.stale())
	c.touch()
	assert.False(t, c.stale())
}

func unreachable() config.Config {
	return config.Config{RPCURL: "http://127.0.0.1:1", WSPath: "/websocket"}
}

func TestRunReturnsAfterClose(t *testing.T) {
	c := New(unreachable(), nil)
	require.NoError(t, c.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	require.NoError(t, ctx.Err(), "Run should return before the deadline")
}

func TestCloseWhileReconnecting(t *testing.T) {
	c := New(unreachable(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Close())
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	_, err := c.initClient()
	require.ErrorIs(t, err, ErrClosed)
}
