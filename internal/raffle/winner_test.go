package raffle

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestSelectWinner(t *testing.T) {
	assert.Equal(t, 1, SelectWinner(3, uint256.NewInt(7)))
	assert.Equal(t, 0, SelectWinner(1, uint256.NewInt(12345)))
	assert.Equal(t, 0, SelectWinner(5, new(uint256.Int)))

	max := new(uint256.Int).SetAllOne()
	// 2^256-1 is divisible by 3 and 5
	assert.Equal(t, 0, SelectWinner(3, max))
	assert.Equal(t, 0, SelectWinner(5, max))
	assert.Equal(t, 1, SelectWinner(2, max))
}

func TestSelectWinnerPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { SelectWinner(0, uint256.NewInt(1)) })
}

func TestRequestLedgerConsumesOnce(t *testing.T) {
	var l requestLedger
	assert.False(t, l.consume(1))

	l.record(4, 2)
	assert.True(t, l.matches(4))
	assert.False(t, l.matches(5))
	p, ok := l.current()
	assert.True(t, ok)
	assert.Equal(t, uint64(2), p.round)

	assert.False(t, l.consume(5))
	assert.True(t, l.consume(4))
	assert.False(t, l.consume(4))
	_, ok = l.current()
	assert.False(t, ok)
}
