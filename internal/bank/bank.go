// Package bank holds account balances and performs all-or-nothing value
// transfers between them.
package bank

import (
	"context"
	"errors"

	"pooled-raffle/internal/raffle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrRecipientRejected   = errors.New("bank: recipient rejected funds")
	ErrInvalidAmount       = errors.New("bank: invalid amount")
)

// Ledger is the value-transfer primitive. Transfer and Refund either move the
// full amount or return an error and leave both balances untouched.
type Ledger interface {
	Balance(ctx context.Context, addr common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	// Refund reverses an earlier Transfer from to into from. The recipient's
	// rejection flag does not apply.
	Refund(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	Mint(ctx context.Context, to common.Address, amount *uint256.Int) error
	SetRejecting(ctx context.Context, addr common.Address, reject bool) error
}

// Payer returns a raffle.Transferer that pays winners out of pool.
func Payer(l Ledger, pool common.Address) raffle.Transferer {
	return raffle.TransferFunc(func(ctx context.Context, to common.Address, amount *uint256.Int) error {
		return l.Transfer(ctx, pool, to, amount)
	})
}
