package models

import "time"

// Account is a balance held by the bank ledger.
type Account struct {
	ID           uint   `gorm:"primaryKey"`
	Address      string `gorm:"size:42;uniqueIndex;not null"`
	Balance      string `gorm:"size:78;not null"` // decimal wei
	RejectsFunds bool   // incoming transfers fail, like a contract without a receive hook
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
