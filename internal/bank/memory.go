package bank

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Memory is an in-process Ledger.
type Memory struct {
	mu        sync.Mutex
	balances  map[common.Address]*uint256.Int
	rejecting map[common.Address]bool
}

func NewMemory() *Memory {
	return &Memory{
		balances:  map[common.Address]*uint256.Int{},
		rejecting: map[common.Address]bool{},
	}
}

func (m *Memory) Balance(_ context.Context, addr common.Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(addr).Clone(), nil
}

func (m *Memory) balance(addr common.Address) *uint256.Int {
	if b, ok := m.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

func (m *Memory) Transfer(_ context.Context, from, to common.Address, amount *uint256.Int) error {
	return m.move(from, to, amount, true)
}

func (m *Memory) Refund(_ context.Context, from, to common.Address, amount *uint256.Int) error {
	return m.move(from, to, amount, false)
}

func (m *Memory) move(from, to common.Address, amount *uint256.Int, checkRejecting bool) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if checkRejecting && m.rejecting[to] {
		return fmt.Errorf("%w: %s", ErrRecipientRejected, to.Hex())
	}
	fromBal := m.balance(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	toBal, overflow := new(uint256.Int).AddOverflow(m.balance(to), amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow for %s", ErrInvalidAmount, to.Hex())
	}
	m.balances[from] = new(uint256.Int).Sub(fromBal, amount)
	m.balances[to] = toBal
	return nil
}

func (m *Memory) Mint(_ context.Context, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, overflow := new(uint256.Int).AddOverflow(m.balance(to), amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	m.balances[to] = sum
	return nil
}

func (m *Memory) SetRejecting(_ context.Context, addr common.Address, reject bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reject {
		m.rejecting[addr] = true
	} else {
		delete(m.rejecting, addr)
	}
	return nil
}
