package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pooled-raffle/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
)

// Store is a Ledger persisted through GORM. Each transfer runs in one
// database transaction.
type Store struct {
	db *gorm.DB
	mu sync.Mutex // serialises read-modify-write cycles within this process
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Balance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	acc, err := loadAccount(s.db.WithContext(ctx), addr)
	if err != nil {
		return nil, err
	}
	return parseBalance(acc)
}

func (s *Store) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return s.move(ctx, from, to, amount, true)
}

func (s *Store) Refund(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return s.move(ctx, from, to, amount, false)
}

func (s *Store) move(ctx context.Context, from, to common.Address, amount *uint256.Int, checkRejecting bool) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := loadAccount(tx, from)
		if err != nil {
			return err
		}
		dst, err := loadAccount(tx, to)
		if err != nil {
			return err
		}
		if checkRejecting && dst.RejectsFunds {
			return fmt.Errorf("%w: %s", ErrRecipientRejected, to.Hex())
		}
		srcBal, err := parseBalance(src)
		if err != nil {
			return err
		}
		if srcBal.Lt(amount) {
			return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), srcBal.Dec(), amount.Dec())
		}
		if from == to {
			return nil
		}
		dstBal, err := parseBalance(dst)
		if err != nil {
			return err
		}
		sum, overflow := new(uint256.Int).AddOverflow(dstBal, amount)
		if overflow {
			return fmt.Errorf("%w: balance overflow for %s", ErrInvalidAmount, to.Hex())
		}
		src.Balance = new(uint256.Int).Sub(srcBal, amount).Dec()
		dst.Balance = sum.Dec()
		if err := tx.Save(src).Error; err != nil {
			return err
		}
		return tx.Save(dst).Error
	})
}

func (s *Store) Mint(ctx context.Context, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := loadAccount(tx, to)
		if err != nil {
			return err
		}
		bal, err := parseBalance(acc)
		if err != nil {
			return err
		}
		sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
		if overflow {
			return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
		}
		acc.Balance = sum.Dec()
		return tx.Save(acc).Error
	})
}

func (s *Store) SetRejecting(ctx context.Context, addr common.Address, reject bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := loadAccount(tx, addr)
		if err != nil {
			return err
		}
		acc.RejectsFunds = reject
		return tx.Save(acc).Error
	})
}

// loadAccount returns the stored account or an unsaved zero-balance one.
func loadAccount(tx *gorm.DB, addr common.Address) (*models.Account, error) {
	var acc models.Account
	err := tx.Where("address = ?", addr.Hex()).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Account{Address: addr.Hex(), Balance: "0"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", addr.Hex(), err)
	}
	return &acc, nil
}

func parseBalance(acc *models.Account) (*uint256.Int, error) {
	bal, err := uint256.FromDecimal(acc.Balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for %s: %w", acc.Address, err)
	}
	return bal, nil
}
