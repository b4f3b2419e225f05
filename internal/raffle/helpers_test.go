package raffle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type fakeRandomness struct {
	next     RequestID
	err      error
	requests []RandomnessRequest
}

func (f *fakeRandomness) RequestRandomness(_ context.Context, req RandomnessRequest) (RequestID, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	f.requests = append(f.requests, req)
	return f.next, nil
}

type transfer struct {
	to     common.Address
	amount *uint256.Int
}

type fakeBank struct {
	fail      bool
	attempts  int
	transfers []transfer
}

var errRejected = errors.New("recipient rejected funds")

func (b *fakeBank) Transfer(_ context.Context, to common.Address, amount *uint256.Int) error {
	b.attempts++
	if b.fail {
		return errRejected
	}
	b.transfers = append(b.transfers, transfer{to: to, amount: amount.Clone()})
	return nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type eventLog struct {
	events []Event
}

func (l *eventLog) Notify(ev Event) { l.events = append(l.events, ev) }

func (l *eventLog) names() []string {
	out := make([]string, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.EventName())
	}
	return out
}

type fixture struct {
	raffle *Raffle
	rng    *fakeRandomness
	bank   *fakeBank
	clock  *manualClock
	events *eventLog
}

const testInterval = 30 * time.Second

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca501")
)

func newFixture() *fixture {
	f := &fixture{
		rng:    &fakeRandomness{},
		bank:   &fakeBank{},
		clock:  &manualClock{now: time.Unix(1_700_000_000, 0)},
		events: &eventLog{},
	}
	r, err := New(Config{
		EntranceFee: uint256.NewInt(100),
		Interval:    testInterval,
		Randomness:  f.rng,
		Payout:      f.bank,
		Clock:       f.clock,
		Notifier:    f.events,
	})
	if err != nil {
		panic(err)
	}
	f.raffle = r
	return f
}

// drawing enters the given players with the entrance fee and triggers a draw.
func (f *fixture) drawing(players ...common.Address) RequestID {
	for _, p := range players {
		if err := f.raffle.Enter(p, uint256.NewInt(100)); err != nil {
			panic(err)
		}
	}
	id, err := f.raffle.PerformUpkeep(context.Background(), f.clock.Advance(testInterval+time.Second))
	if err != nil {
		panic(err)
	}
	return id
}
