package raffle

import (
	"time"

	"github.com/holiman/uint256"
)

// Snapshot is a read-only copy of the round values the upkeep check looks at.
type Snapshot struct {
	State             State
	Participants      int
	Balance           *uint256.Int
	LastDrawTimestamp time.Time
	Interval          time.Duration
}

// IsDrawDue reports whether a draw may be triggered at now. It has no side
// effects and may be called at any frequency.
func IsDrawDue(s Snapshot, now time.Time) bool {
	isOpen := s.State == StateOpen
	hasPlayers := s.Participants > 0
	hasBalance := s.Balance != nil && !s.Balance.IsZero()
	timePassed := now.Sub(s.LastDrawTimestamp) >= s.Interval
	return isOpen && hasPlayers && hasBalance && timePassed
}
