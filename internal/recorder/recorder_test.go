package recorder

import (
	"context"
	"testing"
	"time"

	"pooled-raffle/internal/config"
	"pooled-raffle/internal/db"
	"pooled-raffle/internal/events"
	"pooled-raffle/internal/raffle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	gdb, err := db.OpenDialect(config.DatabaseSchemeSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func TestHandleRoundLifecycle(t *testing.T) {
	r := New(openDB(t), nil)
	ctx := context.Background()
	at := time.Unix(1_700_000_000, 0).UTC()

	require.NoError(t, r.Handle(ctx, raffle.Entered{Round: 1, Player: alice, Amount: uint256.NewInt(100), Time: at}))
	require.NoError(t, r.Handle(ctx, raffle.Entered{Round: 1, Player: bob, Amount: uint256.NewInt(120), Time: at}))
	require.NoError(t, r.Handle(ctx, raffle.DrawRequested{Round: 1, RequestID: 1, Time: at.Add(time.Minute)}))

	d, err := r.Draw(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, d.FulfilledAt)

	require.NoError(t, r.Handle(ctx, raffle.WinnerPicked{
		Round:       1,
		RequestID:   1,
		Winner:      bob,
		Index:       1,
		Amount:      uint256.NewInt(220),
		RandomValue: uint256.NewInt(7),
		Time:        at.Add(2 * time.Minute),
	}))

	entries, err := r.Entries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, alice.Hex(), entries[0].Player)
	assert.Equal(t, "120", entries[1].Amount)

	d, err = r.Draw(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, d.FulfilledAt)

	winners, err := r.Winners(ctx, 5)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, bob.Hex(), winners[0].Player)
	assert.Equal(t, "220", winners[0].Amount)
	assert.Equal(t, "7", winners[0].RandomValue)
	assert.Equal(t, 1, winners[0].EntryIndex)
}

func TestRunConsumesSubscription(t *testing.T) {
	r := New(openDB(t), nil)
	hub := events.NewHub()
	sub := hub.Subscribe(8)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), sub) }()

	hub.Notify(raffle.Entered{Round: 3, Player: alice, Amount: uint256.NewInt(100), Time: time.Now()})
	require.Eventually(t, func() bool {
		entries, err := r.Entries(context.Background(), 3)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Unsubscribe(sub)
	require.NoError(t, <-done)
}
