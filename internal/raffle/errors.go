package raffle

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientFee is returned when an entry pays less than the entrance fee.
	ErrInsufficientFee = errors.New("raffle: not enough value entered")
	// ErrNotOpen is returned when entering while a draw is pending.
	ErrNotOpen = errors.New("raffle: not open")
	// ErrUpkeepNotNeeded is returned when a draw is triggered before it is due.
	ErrUpkeepNotNeeded = errors.New("raffle: upkeep not needed")
	// ErrUnknownRequest is returned for randomness responses that match no pending request.
	ErrUnknownRequest = errors.New("raffle: unknown randomness request")
	// ErrTransferFailed is returned when the payout to the winner is rejected.
	ErrTransferFailed = errors.New("raffle: transfer failed")

	ErrInvalidEntranceFee = errors.New("raffle: entrance fee must be positive")
	ErrInvalidInterval    = errors.New("raffle: interval must not be negative")
	ErrIndexOutOfRange    = errors.New("raffle: participant index out of range")
	ErrNoRandomWords      = errors.New("raffle: no random words delivered")
	ErrRandomnessRequest  = errors.New("raffle: randomness request failed")
	ErrBalanceOverflow    = errors.New("raffle: pool balance overflow")
)

// UpkeepNotNeededError reports the round values that made a draw ineligible.
type UpkeepNotNeededError struct {
	Balance      *uint256.Int
	Participants int
	State        State
}

func (e *UpkeepNotNeededError) Error() string {
	balance := "0"
	if e.Balance != nil {
		balance = e.Balance.Dec()
	}
	return fmt.Sprintf("%v (balance=%s participants=%d state=%s)",
		ErrUpkeepNotNeeded, balance, e.Participants, e.State)
}

func (e *UpkeepNotNeededError) Unwrap() error { return ErrUpkeepNotNeeded }
