// Package recorder persists raffle notifications so round history survives
// restarts and can be queried.
package recorder

import (
	"context"
	"fmt"

	"pooled-raffle/internal/events"
	"pooled-raffle/internal/logger"
	"pooled-raffle/internal/models"
	"pooled-raffle/internal/raffle"

	"gorm.io/gorm"
)

type Recorder struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Discard()
	}
	return &Recorder{db: db, log: log.With("recorder")}
}

// Run stores events from sub until ctx is cancelled or sub is closed.
func (r *Recorder) Run(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				r.log.Errorf("store %s: %v", ev.EventName(), err)
			}
		}
	}
}

// Handle stores a single event.
func (r *Recorder) Handle(ctx context.Context, ev raffle.Event) error {
	tx := r.db.WithContext(ctx)
	switch e := ev.(type) {
	case raffle.Entered:
		return tx.Create(&models.Entry{
			Round:     e.Round,
			Player:    e.Player.Hex(),
			Amount:    e.Amount.Dec(),
			EnteredAt: e.Time,
		}).Error
	case raffle.DrawRequested:
		return tx.Create(&models.DrawRequest{
			RequestID:   uint64(e.RequestID),
			Round:       e.Round,
			RequestedAt: e.Time,
		}).Error
	case raffle.WinnerPicked:
		return tx.Transaction(func(tx *gorm.DB) error {
			fulfilled := e.Time
			res := tx.Model(&models.DrawRequest{}).
				Where("request_id = ?", uint64(e.RequestID)).
				Update("fulfilled_at", &fulfilled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				r.log.Warnf("winner for request %d without recorded draw", e.RequestID)
			}
			w := models.Winner{
				Round:       e.Round,
				RequestID:   uint64(e.RequestID),
				Player:      e.Winner.Hex(),
				EntryIndex:  e.Index,
				Amount:      e.Amount.Dec(),
				RandomValue: e.RandomValue.Dec(),
				PickedAt:    e.Time,
			}
			return tx.Where(models.Winner{Round: w.Round}).Assign(w).FirstOrCreate(&w).Error
		})
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
}

// Winners returns the most recent winners, newest first.
func (r *Recorder) Winners(ctx context.Context, limit int) ([]models.Winner, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []models.Winner
	err := r.db.WithContext(ctx).Order("round DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Entries returns the entries of a round in admission order.
func (r *Recorder) Entries(ctx context.Context, round uint64) ([]models.Entry, error) {
	var out []models.Entry
	err := r.db.WithContext(ctx).Where("round = ?", round).Order("id ASC").Find(&out).Error
	return out, err
}

// Draw returns the stored randomness request with the given id.
func (r *Recorder) Draw(ctx context.Context, id raffle.RequestID) (models.DrawRequest, error) {
	var out models.DrawRequest
	err := r.db.WithContext(ctx).Where("request_id = ?", uint64(id)).First(&out).Error
	return out, err
}
