// Package service combines the raffle state machine with custody of entry
// fees and the randomness coordinator.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pooled-raffle/internal/bank"
	"pooled-raffle/internal/logger"
	"pooled-raffle/internal/raffle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrPaymentFailed = errors.New("service: entry payment failed")

// Fulfiller delivers randomness for a pending request on demand.
type Fulfiller interface {
	Fulfill(ctx context.Context, id raffle.RequestID) error
	FulfillWithWords(ctx context.Context, id raffle.RequestID, words []*uint256.Int) error
}

// PayoutObserver is told about rejected payouts.
type PayoutObserver interface {
	PayoutFailed()
}

type Options struct {
	Raffle    *raffle.Raffle
	Bank      bank.Ledger
	Account   common.Address // holds the pool
	Fulfiller Fulfiller
	Clock     raffle.Clock
	Payouts   PayoutObserver // optional
	Logger    *logger.Logger
}

type Service struct {
	raffle    *raffle.Raffle
	bank      bank.Ledger
	account   common.Address
	fulfiller Fulfiller
	clock     raffle.Clock
	payouts   PayoutObserver
	log       *logger.Logger
}

func New(opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = raffle.SystemClock
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		raffle:    opts.Raffle,
		bank:      opts.Bank,
		account:   opts.Account,
		fulfiller: opts.Fulfiller,
		clock:     clock,
		payouts:   opts.Payouts,
		log:       log.With("service"),
	}
}

func (s *Service) Raffle() *raffle.Raffle { return s.raffle }

func (s *Service) Bank() bank.Ledger { return s.bank }

func (s *Service) Now() time.Time { return s.clock.Now() }

// Enter moves amount from player to the raffle account and admits the entry.
// Round state and fee are checked before any value moves; if the round closes
// between the check and admission the payment is refunded.
func (s *Service) Enter(ctx context.Context, player common.Address, amount *uint256.Int) error {
	if err := s.raffle.CheckEntry(amount); err != nil {
		return err
	}
	if err := s.bank.Transfer(ctx, player, s.account, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	err := s.raffle.Enter(player, amount)
	if err == nil {
		s.log.Printf("entry admitted: player=%s amount=%s", player.Hex(), amount.Dec())
		return nil
	}
	if rerr := s.bank.Refund(ctx, s.account, player, amount); rerr != nil {
		s.log.Errorf("refund of %s to %s failed: %v", amount.Dec(), player.Hex(), rerr)
		return fmt.Errorf("%w (refund failed: %v)", err, rerr)
	}
	return err
}

// CheckUpkeep evaluates the draw condition at now.
func (s *Service) CheckUpkeep(now time.Time) bool {
	return s.raffle.CheckUpkeep(now)
}

// PerformUpkeep triggers a draw at now.
func (s *Service) PerformUpkeep(ctx context.Context, now time.Time) (raffle.RequestID, error) {
	id, err := s.raffle.PerformUpkeep(ctx, now)
	if err != nil {
		return 0, err
	}
	s.log.Printf("draw requested: round=%d request=%d", s.raffle.Round(), id)
	return id, nil
}

// FulfillRandomWords implements raffle.Consumer and counts rejected payouts.
func (s *Service) FulfillRandomWords(ctx context.Context, id raffle.RequestID, words []*uint256.Int) error {
	err := s.raffle.FulfillRandomWords(ctx, id, words)
	if errors.Is(err, raffle.ErrTransferFailed) {
		s.log.Warnf("payout for request %d failed: %v", id, err)
		if s.payouts != nil {
			s.payouts.PayoutFailed()
		}
	}
	return err
}

// Fulfill asks the coordinator to deliver request id now. A nil words slice
// delivers the coordinator's derived words.
func (s *Service) Fulfill(ctx context.Context, id raffle.RequestID, words []*uint256.Int) error {
	if s.fulfiller == nil {
		return errors.New("service: no randomness fulfiller configured")
	}
	if words == nil {
		return s.fulfiller.Fulfill(ctx, id)
	}
	return s.fulfiller.FulfillWithWords(ctx, id, words)
}

// StateView is the JSON form of the current round.
type StateView struct {
	State             string    `json:"state"`
	Round             uint64    `json:"round"`
	EntranceFee       string    `json:"entranceFee"`
	IntervalSeconds   float64   `json:"intervalSeconds"`
	Balance           string    `json:"balance"`
	Participants      []string  `json:"participants"`
	RecentWinner      string    `json:"recentWinner,omitempty"`
	LastDrawTimestamp time.Time `json:"lastDrawTimestamp"`
	NextDrawAt        time.Time `json:"nextDrawAt"`
	PendingRequest    *uint64   `json:"pendingRequest,omitempty"`
	UpkeepNeeded      bool      `json:"upkeepNeeded"`
	Now               time.Time `json:"now"`
}

func (s *Service) State() StateView {
	now := s.clock.Now()
	info := s.raffle.Info()

	v := StateView{
		State:             info.State.String(),
		Round:             info.Round,
		EntranceFee:       info.EntranceFee.Dec(),
		IntervalSeconds:   info.Interval.Seconds(),
		Balance:           info.Balance.Dec(),
		Participants:      make([]string, 0, len(info.Players)),
		LastDrawTimestamp: info.LastDrawTimestamp,
		NextDrawAt:        info.LastDrawTimestamp.Add(info.Interval),
		UpkeepNeeded:      raffle.IsDrawDue(info.Snapshot, now),
		Now:               now,
	}
	for _, p := range info.Players {
		v.Participants = append(v.Participants, p.Hex())
	}
	if info.RecentWinner != nil {
		v.RecentWinner = info.RecentWinner.Hex()
	}
	if info.PendingRequest != nil {
		n := uint64(*info.PendingRequest)
		v.PendingRequest = &n
	}
	return v
}
