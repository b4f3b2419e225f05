package models

import "time"

// Entry stores one admitted entry. A player entering twice has two rows.
type Entry struct {
	ID        uint      `gorm:"primaryKey"`
	Round     uint64    `gorm:"index;not null"`
	Player    string    `gorm:"size:42;index"`
	Amount    string    `gorm:"size:78"`
	EnteredAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
