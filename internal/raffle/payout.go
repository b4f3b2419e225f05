package raffle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transferer moves value out of the pool. An implementation must either move
// the full amount or nothing.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, to common.Address, amount *uint256.Int) error

func (f TransferFunc) Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error {
	return f(ctx, to, amount)
}

// payoutExecutor sends the pooled balance to a winner and reports failures as
// ErrTransferFailed.
type payoutExecutor struct {
	transferer Transferer
}

func (p payoutExecutor) payout(ctx context.Context, winner common.Address, amount *uint256.Int) error {
	if err := p.transferer.Transfer(ctx, winner, amount); err != nil {
		return fmt.Errorf("%w: pay %s to %s: %w", ErrTransferFailed, amount.Dec(), winner.Hex(), err)
	}
	return nil
}
