package tui

import (
	"strings"
	"testing"
	"time"

	"pooled-raffle/internal/raffle"
	"pooled-raffle/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sized(m Model, w, h int) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return next.(Model)
}

func TestViewLoading(t *testing.T) {
	assert.Equal(t, "Loading...", NewModel(nil).View())
}

func TestViewRendersRound(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	req := uint64(4)
	st := service.StateView{
		State:           "drawing",
		Round:           2,
		EntranceFee:     "100",
		IntervalSeconds: 30,
		Balance:         "200",
		Participants:    []string{common.HexToAddress("0xa11ce").Hex(), common.HexToAddress("0xb0b").Hex()},
		NextDrawAt:      now.Add(-time.Second),
		PendingRequest:  &req,
		Now:             now,
	}
	m := sized(NewModel(func() service.StateView { return st }), 100, 30)
	view := m.View()

	assert.Contains(t, view, "round=2")
	assert.Contains(t, view, "entrance fee: 100")
	assert.Contains(t, view, "pool: 200 (2 players)")
	assert.Contains(t, view, "request: #4")
	assert.Contains(t, view, "next draw: now")
	assert.Contains(t, view, "  0 "+shortAddress(st.Participants[0]))
	assert.Contains(t, view, "  1 "+shortAddress(st.Participants[1]))
}

func TestViewEmptyRound(t *testing.T) {
	m := sized(NewModel(func() service.StateView { return service.StateView{State: "open", Round: 1} }), 80, 20)
	assert.Contains(t, m.View(), "no entries this round")
}

func TestFeedKeepsRecentEvents(t *testing.T) {
	m := sized(NewModel(nil), 120, 40)
	for i := 0; i < maxFeed+3; i++ {
		next, _ := m.Update(EventMsg{Event: raffle.Entered{Round: uint64(i), Player: common.HexToAddress("0xa11ce"), Amount: uint256.NewInt(100)}})
		m = next.(Model)
	}
	require.Len(t, m.feed, maxFeed)
	assert.Contains(t, m.feed[0], "round 3:")

	next, _ := m.Update(EventMsg{Event: raffle.WinnerPicked{Round: 9, Winner: common.HexToAddress("0xb0b"), Amount: uint256.NewInt(300), Index: 1}})
	m = next.(Model)
	assert.Contains(t, m.feed[len(m.feed)-1], "won 300 (index 1)")
}

func TestViewLinesFitWidth(t *testing.T) {
	st := service.StateView{State: "open", Round: 1, EntranceFee: "100", Balance: "0"}
	for i := 0; i < 40; i++ {
		st.Participants = append(st.Participants, common.BigToAddress(common.Big1).Hex())
	}
	m := sized(NewModel(func() service.StateView { return st }), 60, 24)
	for _, line := range strings.Split(m.View(), "\n") {
		if strings.Contains(line, "\x1b") {
			continue
		}
		assert.LessOrEqual(t, len([]rune(line)), 60, line)
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
