// Package chainclock follows a CometBFT node and exposes the time of its
// latest committed block, so round timing follows chain time instead of the
// local wall clock.
package chainclock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pooled-raffle/internal/config"
	"pooled-raffle/internal/logger"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	rpccoretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
)

const (
	subscriber      = "raffle-clock"
	watchdogTimeout = 30 * time.Second
	reconnectPause  = 3 * time.Second
)

// Clock implements raffle.Clock. Until the first block arrives it falls back
// to the wall clock.
type Clock struct {
	cfg    config.Config
	log    *logger.Logger
	wall   func() time.Time

	mu        sync.RWMutex
	height    int64
	blockTime time.Time
	lastSeen  time.Time // wall time of the last block event

	clientMu sync.Mutex
	client   *rpchttp.HTTP
	closed   bool
}

// ErrClosed is returned by Run once Close has been called.
var ErrClosed = errors.New("chainclock: closed")

func New(cfg config.Config, log *logger.Logger) *Clock {
	if log == nil {
		log = logger.Discard()
	}
	return &Clock{cfg: cfg, log: log.With("chainclock"), wall: time.Now}
}

// Now returns the latest block time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.height == 0 {
		return c.wall()
	}
	return c.blockTime
}

// Height returns the latest observed block height, 0 before the first block.
func (c *Clock) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Observe records a committed block. Blocks at or below the current height are ignored.
func (c *Clock) Observe(height int64, t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = c.wall()
	if height <= c.height {
		return false
	}
	c.height = height
	c.blockTime = t
	return true
}

func (c *Clock) Run(ctx context.Context) error {
	for {
		if err := c.runLoop(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil // Context cancelled, normal shutdown
			}
			// Only log actual errors, not planned reconnects
			if !strings.Contains(err.Error(), "reconnect:") {
				c.log.Warnf("run loop error: %v, reconnecting...", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectPause):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Clock) runLoop(ctx context.Context) error {
	// Each connection cycle gets its own context so the old handler stops on reconnect
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.cleanupClient(loopCtx)

	client, err := c.initClient()
	if err != nil {
		return err
	}

	blockCh, err := client.Subscribe(loopCtx, subscriber, "tm.event = 'NewBlock'")
	if err != nil {
		return fmt.Errorf("subscribe NewBlock: %w", err)
	}
	c.log.Printf("subscribed to NewBlock events at %s", c.cfg.RPCURL)

	// Seed with the latest block so the clock is usable before the next event
	if res, err := client.Block(loopCtx, nil); err == nil && res.Block != nil {
		c.Observe(res.Block.Header.Height, res.Block.Header.Time)
	} else if err != nil {
		c.log.Warnf("fetch latest block: %v", err)
	}

	go func() {
		for {
			select {
			case <-loopCtx.Done():
				return
			case ev, ok := <-blockCh:
				if !ok {
					c.log.Printf("NewBlock event channel closed")
					return
				}
				c.handleNewBlock(ev)
			}
		}
	}()

	return c.watchdogLoop(loopCtx)
}

// cleanupClient stops and cleans up existing client
func (c *Clock) cleanupClient(ctx context.Context) {
	c.clientMu.Lock()
	client := c.client
	c.client = nil
	c.clientMu.Unlock()
	if client == nil {
		return
	}
	unsubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_ = client.UnsubscribeAll(unsubCtx, subscriber)
	_ = client.Stop()
}

// initClient creates and starts a new RPC client
func (c *Clock) initClient() (*rpchttp.HTTP, error) {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	client, err := rpchttp.New(c.cfg.RPCURL, c.cfg.WSURL())
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}
	if err := client.Start(); err != nil {
		return nil, fmt.Errorf("start rpc client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *Clock) watchdogLoop(ctx context.Context) error {
	watchdog := time.NewTicker(watchdogTimeout)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watchdog.C:
			if c.stale() {
				c.log.Warnf("no blocks received for %s, reconnecting WebSocket...", watchdogTimeout)
				c.touch()
				return fmt.Errorf("reconnect: no blocks for %s", watchdogTimeout)
			}
		}
	}
}

func (c *Clock) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wall().Sub(c.lastSeen) > watchdogTimeout
}

func (c *Clock) touch() {
	c.mu.Lock()
	c.lastSeen = c.wall()
	c.mu.Unlock()
}

func (c *Clock) handleNewBlock(ev rpccoretypes.ResultEvent) {
	data, ok := ev.Data.(cmttypes.EventDataNewBlock)
	if !ok {
		if d2, ok2 := ev.Data.(*cmttypes.EventDataNewBlock); ok2 && d2 != nil {
			data = *d2
			ok = true
		}
	}
	if !ok {
		c.log.Printf("unknown NewBlock event data type: %T", ev.Data)
		return
	}
	blk := data.Block
	if blk == nil || blk.Header.Height == 0 {
		return
	}
	if c.Observe(blk.Header.Height, blk.Header.Time) {
		c.log.Printf("block %d at %s", blk.Header.Height, blk.Header.Time.Format(time.RFC3339))
	}
}

// Close stops the current RPC client. Run returns on its next reconnect attempt.
func (c *Clock) Close() error {
	c.clientMu.Lock()
	client := c.client
	c.client = nil
	c.closed = true
	c.clientMu.Unlock()
	if client != nil {
		return client.Stop()
	}
	return nil
}
