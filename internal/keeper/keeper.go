// Package keeper runs the periodic upkeep check and triggers draws when due.
package keeper

import (
	"context"
	"errors"
	"time"

	"pooled-raffle/internal/logger"
	"pooled-raffle/internal/raffle"
)

// Upkeeper is the part of the raffle the keeper drives.
type Upkeeper interface {
	CheckUpkeep(now time.Time) bool
	PerformUpkeep(ctx context.Context, now time.Time) (raffle.RequestID, error)
}

type Keeper struct {
	target Upkeeper
	clock  raffle.Clock
	poll   time.Duration
	log    *logger.Logger
}

func New(target Upkeeper, clock raffle.Clock, poll time.Duration, log *logger.Logger) *Keeper {
	if poll <= 0 {
		poll = time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Keeper{target: target, clock: clock, poll: poll, log: log.With("keeper")}
}

// Run polls until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.Tick(ctx)
		}
	}
}

// Tick performs one upkeep check. It returns the request id when a draw was triggered.
func (k *Keeper) Tick(ctx context.Context) (raffle.RequestID, bool) {
	now := k.clock.Now()
	if !k.target.CheckUpkeep(now) {
		return 0, false
	}
	id, err := k.target.PerformUpkeep(ctx, now)
	if err != nil {
		// another caller may have triggered the draw between check and perform
		if errors.Is(err, raffle.ErrUpkeepNotNeeded) {
			k.log.Printf("upkeep no longer needed: %v", err)
		} else {
			k.log.Errorf("perform upkeep: %v", err)
		}
		return 0, false
	}
	k.log.Printf("draw triggered: request=%d", id)
	return id, true
}
