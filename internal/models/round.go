// Package models defines the database models for the raffle.
package models

import "time"

// DrawRequest is a randomness request issued when a round entered the drawing state.
type DrawRequest struct {
	ID          uint       `gorm:"primaryKey"`
	RequestID   uint64     `gorm:"uniqueIndex;not null"`
	Round       uint64     `gorm:"index;not null"`
	RequestedAt time.Time  `gorm:"index"`
	FulfilledAt *time.Time // nil while the draw is pending
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Winner records the payout that closed a round.
type Winner struct {
	ID          uint      `gorm:"primaryKey"`
	Round       uint64    `gorm:"uniqueIndex;not null"`
	RequestID   uint64    `gorm:"index"`
	Player      string    `gorm:"size:42;index"`
	EntryIndex  int
	Amount      string    `gorm:"size:78"` // decimal wei
	RandomValue string    `gorm:"size:78"`
	PickedAt    time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
