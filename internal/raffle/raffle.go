package raffle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Config holds the construction parameters of a Raffle.
type Config struct {
	EntranceFee *uint256.Int
	Interval    time.Duration
	Randomness  RandomnessService
	Payout      Transferer
	Clock       Clock    // defaults to SystemClock
	Notifier    Notifier // optional
}

// Result describes a completed draw.
type Result struct {
	Round     uint64
	RequestID RequestID
	Winner    common.Address
	Index     int
	Amount    *uint256.Int
}

// Raffle is the single round state machine. Create it with New.
type Raffle struct {
	entranceFee *uint256.Int
	interval    time.Duration
	randomness  RandomnessService
	payout      payoutExecutor
	clock       Clock
	notifier    Notifier

	mu           sync.Mutex
	state        State
	round        uint64
	participants []common.Address
	balance      *uint256.Int
	lastDraw     time.Time
	recentWinner *common.Address
	ledger       requestLedger
}

// New creates an open raffle whose first round starts now.
func New(cfg Config) (*Raffle, error) {
	if cfg.EntranceFee == nil || cfg.EntranceFee.IsZero() {
		return nil, ErrInvalidEntranceFee
	}
	if cfg.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if cfg.Randomness == nil {
		return nil, fmt.Errorf("raffle: randomness service is required")
	}
	if cfg.Payout == nil {
		return nil, fmt.Errorf("raffle: payout transferer is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Raffle{
		entranceFee: cfg.EntranceFee.Clone(),
		interval:    cfg.Interval,
		randomness:  cfg.Randomness,
		payout:      payoutExecutor{transferer: cfg.Payout},
		clock:       clock,
		notifier:    notifier,
		state:       StateOpen,
		round:       1,
		balance:     new(uint256.Int),
		lastDraw:    clock.Now(),
	}, nil
}

// Enter admits player into the current round. The state is checked before the
// amount, so entering a drawing round fails with ErrNotOpen whatever is paid.
func (r *Raffle) Enter(player common.Address, amount *uint256.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum, err := r.checkEntry(amount)
	if err != nil {
		return err
	}
	r.participants = append(r.participants, player)
	r.balance = sum
	r.notifier.Notify(Entered{
		Round:  r.round,
		Player: player,
		Amount: amount.Clone(),
		Time:   r.clock.Now(),
	})
	return nil
}

// CheckEntry returns the error Enter would return for amount right now,
// without admitting anyone.
func (r *Raffle) CheckEntry(amount *uint256.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.checkEntry(amount)
	return err
}

// checkEntry validates an entry and returns the pool balance after it.
func (r *Raffle) checkEntry(amount *uint256.Int) (*uint256.Int, error) {
	if r.state != StateOpen {
		return nil, ErrNotOpen
	}
	if amount == nil || amount.Lt(r.entranceFee) {
		return nil, ErrInsufficientFee
	}
	sum, overflow := new(uint256.Int).AddOverflow(r.balance, amount)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	return sum, nil
}

// CheckUpkeep reports whether PerformUpkeep would succeed at now.
func (r *Raffle) CheckUpkeep(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return IsDrawDue(r.snapshot(), now)
}

// PerformUpkeep starts a draw and returns the id of the randomness request.
// The RandomnessService must not deliver the response before this call returns.
func (r *Raffle) PerformUpkeep(ctx context.Context, now time.Time) (RequestID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !IsDrawDue(r.snapshot(), now) {
		return 0, &UpkeepNotNeededError{
			Balance:      r.balance.Clone(),
			Participants: len(r.participants),
			State:        r.state,
		}
	}
	id, err := r.randomness.RequestRandomness(ctx, RandomnessRequest{
		NumWords:      NumWords,
		Confirmations: RequestConfirmations,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRandomnessRequest, err)
	}
	r.state = StateDrawing
	r.ledger.record(id, r.round)
	r.notifier.Notify(DrawRequested{Round: r.round, RequestID: id, Time: now})
	return id, nil
}

// FulfillRandomWords implements Consumer using the first delivered word.
func (r *Raffle) FulfillRandomWords(ctx context.Context, id RequestID, words []*uint256.Int) error {
	if len(words) == 0 {
		return ErrNoRandomWords
	}
	_, err := r.OnRandomnessDelivered(ctx, id, words[0])
	return err
}

// OnRandomnessDelivered completes the pending draw identified by id. If the
// payout fails nothing changes and the same id may be delivered again.
func (r *Raffle) OnRandomnessDelivered(ctx context.Context, id RequestID, random *uint256.Int) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, ok := r.ledger.current()
	if !ok || pending.id != id {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownRequest, id)
	}
	if random == nil {
		return Result{}, ErrNoRandomWords
	}
	idx := SelectWinner(len(r.participants), random)
	winner := r.participants[idx]
	amount := r.balance.Clone()
	if err := r.payout.payout(ctx, winner, amount); err != nil {
		return Result{}, err
	}

	if !r.ledger.consume(id) {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownRequest, id)
	}
	res := Result{
		Round:     pending.round,
		RequestID: id,
		Winner:    winner,
		Index:     idx,
		Amount:    amount,
	}
	r.recentWinner = &winner
	r.participants = nil
	r.balance = new(uint256.Int)
	r.lastDraw = r.clock.Now()
	r.state = StateOpen
	r.round++
	r.notifier.Notify(WinnerPicked{
		Round:       res.Round,
		RequestID:   id,
		Winner:      winner,
		Index:       idx,
		Amount:      amount.Clone(),
		RandomValue: random.Clone(),
		Time:        r.lastDraw,
	})
	return res, nil
}

func (r *Raffle) snapshot() Snapshot {
	return Snapshot{
		State:             r.state,
		Participants:      len(r.participants),
		Balance:           r.balance.Clone(),
		LastDrawTimestamp: r.lastDraw,
		Interval:          r.interval,
	}
}

// Snapshot returns a copy of the values the upkeep check uses.
func (r *Raffle) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Raffle) EntranceFee() *uint256.Int { return r.entranceFee.Clone() }

func (r *Raffle) Interval() time.Duration { return r.interval }

func (r *Raffle) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Round returns the number of the current round, starting at 1.
func (r *Raffle) Round() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

func (r *Raffle) Balance() *uint256.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance.Clone()
}

func (r *Raffle) Participant(i int) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.participants) {
		return common.Address{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return r.participants[i], nil
}

func (r *Raffle) NumParticipants() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// Participants returns a copy of the entries of the current round in order.
func (r *Raffle) Participants() []common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Address, len(r.participants))
	copy(out, r.participants)
	return out
}

// RecentWinner returns the winner of the last completed round, if any.
func (r *Raffle) RecentWinner() (common.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recentWinner == nil {
		return common.Address{}, false
	}
	return *r.recentWinner, true
}

func (r *Raffle) LastDrawTimestamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDraw
}

// PendingRequest returns the outstanding randomness request id while drawing.
func (r *Raffle) PendingRequest() (RequestID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ledger.current()
	return p.id, ok
}

// Info is a consistent copy of the whole round.
type Info struct {
	Snapshot
	Round          uint64
	EntranceFee    *uint256.Int
	Players        []common.Address
	RecentWinner   *common.Address
	PendingRequest *RequestID
}

// Info returns every round field read under one lock.
func (r *Raffle) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := Info{
		Snapshot:    r.snapshot(),
		Round:       r.round,
		EntranceFee: r.entranceFee.Clone(),
		Players:     make([]common.Address, len(r.participants)),
	}
	copy(info.Players, r.participants)
	if r.recentWinner != nil {
		w := *r.recentWinner
		info.RecentWinner = &w
	}
	if p, ok := r.ledger.current(); ok {
		id := p.id
		info.PendingRequest = &id
	}
	return info
}
