package raffle

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event is a notification emitted after a raffle operation has been applied.
type Event interface {
	EventName() string
}

// Entered is emitted for every admitted entry.
type Entered struct {
	Round  uint64
	Player common.Address
	Amount *uint256.Int
	Time   time.Time
}

// DrawRequested is emitted when a round moves to drawing.
type DrawRequested struct {
	Round     uint64
	RequestID RequestID
	Time      time.Time
}

// WinnerPicked is emitted once the pool has been paid out.
type WinnerPicked struct {
	Round       uint64
	RequestID   RequestID
	Winner      common.Address
	Index       int
	Amount      *uint256.Int
	RandomValue *uint256.Int
	Time        time.Time
}

func (Entered) EventName() string       { return "entered" }
func (DrawRequested) EventName() string { return "draw_requested" }
func (WinnerPicked) EventName() string  { return "winner_picked" }

// Notifier receives raffle events. Notify is called while the raffle lock is
// held, so implementations must not block or call back into the Raffle.
type Notifier interface {
	Notify(Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// Notifiers delivers each event to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ev Event) {
	for _, n := range ns {
		n.Notify(ev)
	}
}
