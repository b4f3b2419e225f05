package raffle

import (
	"context"
	"time"

	"github.com/holiman/uint256"
)

const (
	// NumWords is the number of random words requested per draw.
	NumWords = 1
	// RequestConfirmations is the number of confirmations asked of the randomness service.
	RequestConfirmations = 3
)

// RandomnessRequest carries the parameters of a randomness request.
type RandomnessRequest struct {
	NumWords      uint32
	Confirmations uint16
}

// RandomnessService issues randomness requests. The response is delivered
// asynchronously to a Consumer.
type RandomnessService interface {
	RequestRandomness(ctx context.Context, req RandomnessRequest) (RequestID, error)
}

// Consumer receives random words for a previously issued request.
type Consumer interface {
	FulfillRandomWords(ctx context.Context, id RequestID, words []*uint256.Int) error
}

// Clock supplies the current time used when a round resets.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
