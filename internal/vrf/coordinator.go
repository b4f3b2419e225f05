// Package vrf provides a local randomness coordinator that issues request ids
// and later delivers random words to a consumer, the way an on-chain VRF
// coordinator does.
package vrf

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pooled-raffle/internal/logger"
	"pooled-raffle/internal/raffle"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	// BaseFee is the premium charged per fulfilled request (0.25 LINK in wei).
	BaseFee = 250_000_000_000_000_000
	// GasPriceLink is the LINK price of one gas unit.
	GasPriceLink = 1_000_000_000

	defaultPollInterval = 250 * time.Millisecond
)

var (
	ErrNonexistentRequest = errors.New("vrf: nonexistent request")
	ErrNoConsumer         = errors.New("vrf: no consumer registered")
	ErrInvalidNumWords    = errors.New("vrf: numWords must be positive")
)

// Options configures a Coordinator.
type Options struct {
	Seed         []byte        // mixed into every derived word
	Delay        time.Duration // minimum time between request and automatic delivery
	RetryDelay   time.Duration // wait after a rejected delivery
	PollInterval time.Duration
	Now          func() time.Time
	Logger       *logger.Logger
}

type request struct {
	id       raffle.RequestID
	numWords uint32
	readyAt  time.Time
	attempts int
}

// Coordinator implements raffle.RandomnessService. Responses are never sent
// from inside RequestRandomness; they are delivered by Run or by explicit
// Fulfill calls.
type Coordinator struct {
	opts Options
	log  *logger.Logger

	mu       sync.Mutex
	consumer raffle.Consumer
	lastID   raffle.RequestID
	pending  map[raffle.RequestID]*request
	charged  *uint256.Int
}

// NewCoordinator creates a coordinator. Request ids start at 1.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Coordinator{
		opts:    opts,
		log:     log.With("vrf"),
		pending: make(map[raffle.RequestID]*request),
		charged: new(uint256.Int),
	}
}

// SetConsumer registers the contract that receives random words.
func (c *Coordinator) SetConsumer(consumer raffle.Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumer = consumer
}

// RequestRandomness records a new request and returns its id.
func (c *Coordinator) RequestRandomness(_ context.Context, req raffle.RandomnessRequest) (raffle.RequestID, error) {
	if req.NumWords == 0 {
		return 0, ErrInvalidNumWords
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumer == nil {
		return 0, ErrNoConsumer
	}
	c.lastID++
	id := c.lastID
	c.pending[id] = &request{
		id:       id,
		numWords: req.NumWords,
		readyAt:  c.opts.Now().Add(c.opts.Delay),
	}
	c.log.Printf("random words requested: id=%d words=%d confirmations=%d", id, req.NumWords, req.Confirmations)
	return id, nil
}

// Pending returns the ids of requests that have not been delivered, in order.
func (c *Coordinator) Pending() []raffle.RequestID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]raffle.RequestID, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Charged returns the total premium billed for fulfilled requests.
func (c *Coordinator) Charged() *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.charged.Clone()
}

// Words derives the random words for a request id.
func (c *Coordinator) Words(id raffle.RequestID, n uint32) []*uint256.Int {
	words := make([]*uint256.Int, n)
	var idBuf, idxBuf [32]byte
	binary.BigEndian.PutUint64(idBuf[24:], uint64(id))
	for i := uint32(0); i < n; i++ {
		binary.BigEndian.PutUint64(idxBuf[24:], uint64(i))
		h := crypto.Keccak256(c.opts.Seed, idBuf[:], idxBuf[:])
		words[i] = new(uint256.Int).SetBytes(h)
	}
	return words
}

// Fulfill delivers the derived words of request id to the consumer.
func (c *Coordinator) Fulfill(ctx context.Context, id raffle.RequestID) error {
	c.mu.Lock()
	req, ok := c.pending[id]
	var n uint32
	if ok {
		n = req.numWords
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNonexistentRequest, id)
	}
	return c.FulfillWithWords(ctx, id, c.Words(id, n))
}

// FulfillWithWords delivers words for request id. The request stays pending
// when the consumer rejects the delivery, so it can be retried.
func (c *Coordinator) FulfillWithWords(ctx context.Context, id raffle.RequestID, words []*uint256.Int) error {
	c.mu.Lock()
	req, ok := c.pending[id]
	consumer := c.consumer
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNonexistentRequest, id)
	}

	// the consumer takes its own lock and may call RequestRandomness
	err := consumer.FulfillRandomWords(ctx, id, words)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		delete(c.pending, id)
		c.charged = new(uint256.Int).Add(c.charged, uint256.NewInt(BaseFee))
		c.log.Printf("random words fulfilled: id=%d", id)
		return nil
	case errors.Is(err, raffle.ErrUnknownRequest):
		delete(c.pending, id)
		return err
	default:
		req.attempts++
		req.readyAt = c.opts.Now().Add(c.opts.RetryDelay)
		return err
	}
}

// Run delivers due requests until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.deliverDue(ctx)
		}
	}
}

func (c *Coordinator) deliverDue(ctx context.Context) {
	now := c.opts.Now()
	c.mu.Lock()
	var due []raffle.RequestID
	for id, req := range c.pending {
		if !now.Before(req.readyAt) {
			due = append(due, id)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	for _, id := range due {
		if err := c.Fulfill(ctx, id); err != nil {
			c.log.Warnf("delivery of request %d failed: %v", id, err)
		}
	}
}
