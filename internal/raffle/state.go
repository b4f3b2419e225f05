// Package raffle implements the pooled-entry lottery state machine.
//
// A Raffle owns exactly one round at a time. Entries are admitted while the
// round is open; once the interval has elapsed a draw moves the round into the
// drawing state and asks a RandomnessService for a random word. The response is
// delivered later through OnRandomnessDelivered, which pays the whole pool to
// the selected participant and reopens the round.
//
// All exported methods of Raffle serialise on a single mutex, so callers from
// several goroutines never observe a partially applied operation.
package raffle

import "fmt"

// State is the lifecycle stage of the current round.
type State uint8

const (
	StateOpen    State = iota // accepting entries
	StateDrawing              // waiting for randomness, entries rejected
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDrawing:
		return "drawing"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
