package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pooled-raffle/internal/events"
	"pooled-raffle/internal/raffle"
	"pooled-raffle/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// maxFeed is the number of recent events kept on screen.
const maxFeed = 8

var (
	openStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	drawingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return s
	}
	return s + strings.Repeat(" ", width-current)
}

// truncate cuts s to at most width display cells, marking the cut with "...".
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

func separatorLine(width int) string {
	if width < 2 {
		return strings.Repeat("─", width)
	}
	return "├" + strings.Repeat("─", width-2) + "┤"
}

func formatInfoLine(text string, width int) string {
	if width < 2 {
		return padToWidth(text, width)
	}
	return "│" + padToWidth(truncate(text, width-2), width-2) + "│"
}

// UpdateMsg carries a fresh view of the round.
type UpdateMsg struct {
	State service.StateView
}

// EventMsg carries a raffle notification for the feed.
type EventMsg struct {
	Event raffle.Event
}

type tickMsg time.Time

// Model holds the TUI state
type Model struct {
	state  service.StateView
	feed   []string
	width  int
	height int

	refresh func() service.StateView
}

// NewModel creates a model that polls refresh once a second. refresh may be nil.
func NewModel(refresh func() service.StateView) Model {
	m := Model{refresh: refresh}
	if refresh != nil {
		m.state = refresh()
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case UpdateMsg:
		m.state = msg.State
		return m, nil

	case EventMsg:
		m.feed = append(m.feed, describe(msg.Event))
		if len(m.feed) > maxFeed {
			m.feed = m.feed[len(m.feed)-maxFeed:]
		}
		if m.refresh != nil {
			m.state = m.refresh()
		}
		return m, nil

	case tickMsg:
		if m.refresh != nil {
			m.state = m.refresh()
		}
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderPlayers(), m.renderFeed())
}

func (m Model) renderHeader() string {
	s := m.state
	colWidth := (m.width - 3) / 2
	rightColWidth := m.width - colWidth - 3
	if colWidth < 4 || rightColWidth < 4 {
		return formatInfoLine(s.State, m.width)
	}

	stateStr := s.State
	switch s.State {
	case raffle.StateOpen.String():
		stateStr = openStyle.Render(s.State)
	case raffle.StateDrawing.String():
		stateStr = drawingStyle.Render(s.State)
	}

	next := "now"
	if wait := s.NextDrawAt.Sub(s.Now); wait > 0 {
		next = wait.Truncate(time.Second).String()
	}
	pending := "none"
	if s.PendingRequest != nil {
		pending = fmt.Sprintf("#%d", *s.PendingRequest)
	}
	winner := s.RecentWinner
	if winner == "" {
		winner = "none"
	}

	leftLines := []string{
		fmt.Sprintf("round=%d state=%s", s.Round, stateStr),
		fmt.Sprintf("entrance fee: %s", s.EntranceFee),
		fmt.Sprintf("interval: %s", time.Duration(s.IntervalSeconds*float64(time.Second))),
	}
	rightLines := []string{
		fmt.Sprintf("pool: %s (%d players)", s.Balance, len(s.Participants)),
		fmt.Sprintf("next draw: %s upkeep=%t", next, s.UpkeepNeeded),
		fmt.Sprintf("request: %s winner: %s", pending, winner),
	}

	rows := make([]string, 0, len(leftLines))
	for i := range leftLines {
		left := padToWidth(truncateStyled(leftLines[i], colWidth-2), colWidth-2)
		right := padToWidth(truncate(rightLines[i], rightColWidth-2), rightColWidth-2)
		rows = append(rows, fmt.Sprintf("│ %s │ %s │", left, right))
	}

	topBorder := fmt.Sprintf("┌%s┬%s┐", strings.Repeat("─", colWidth), strings.Repeat("─", rightColWidth))
	separator := fmt.Sprintf("├%s┴%s┤", strings.Repeat("─", colWidth), strings.Repeat("─", rightColWidth))
	return topBorder + "\n" + strings.Join(rows, "\n") + "\n" + separator
}

// truncateStyled truncates lines that may contain ANSI styling. Styled text
// is left alone since cutting it would break the escape sequences.
func truncateStyled(s string, width int) string {
	if lipgloss.Width(s) != runewidth.StringWidth(s) {
		return s
	}
	return truncate(s, width)
}

// renderPlayers lays participants out in columns, in entry order.
func (m Model) renderPlayers() string {
	players := m.state.Participants
	if len(players) == 0 {
		return formatInfoLine(" no entries this round", m.width)
	}

	availableHeight := m.height - 8 - maxFeed
	if availableHeight < 1 {
		availableHeight = 1
	}

	// "idx 0x1234...abcd" plus a separator
	const cellWidth = 20
	cols := (m.width - 2) / (cellWidth + 1)
	if cols < 1 {
		cols = 1
	}
	totalRows := (len(players) + cols - 1) / cols
	rows := totalRows
	if rows > availableHeight {
		rows = availableHeight
	}

	lines := make([]string, 0, rows)
	for row := 0; row < rows; row++ {
		var cells []string
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			if idx >= len(players) {
				break
			}
			cells = append(cells, padToWidth(fmt.Sprintf("%3d %s", idx, shortAddress(players[idx])), cellWidth))
		}
		lines = append(lines, formatInfoLine(strings.Join(cells, " "), m.width))
	}
	if rows < totalRows {
		lines = append(lines, formatInfoLine(fmt.Sprintf(" ... %d more", len(players)-rows*cols), m.width))
	}
	return strings.Join(lines, "\n") + "\n" + separatorLine(m.width) + "\n" + formatInfoLine("Index, Player", m.width)
}

func (m Model) renderFeed() string {
	lines := []string{separatorLine(m.width)}
	for _, l := range m.feed {
		lines = append(lines, formatInfoLine(" "+l, m.width))
	}
	bottomBorder := "└" + strings.Repeat("─", max(m.width-2, 0)) + "┘"
	return strings.Join(lines, "\n") + "\n" + bottomBorder
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-4:]
}

func describe(ev raffle.Event) string {
	switch e := ev.(type) {
	case raffle.Entered:
		return fmt.Sprintf("%s round %d: %s entered with %s", e.Time.Format(time.TimeOnly), e.Round, shortAddress(e.Player.Hex()), e.Amount.Dec())
	case raffle.DrawRequested:
		return fmt.Sprintf("%s round %d: draw requested (#%d)", e.Time.Format(time.TimeOnly), e.Round, e.RequestID)
	case raffle.WinnerPicked:
		return fmt.Sprintf("%s round %d: %s won %s (index %d)", e.Time.Format(time.TimeOnly), e.Round, shortAddress(e.Winner.Hex()), e.Amount.Dec(), e.Index)
	default:
		return ev.EventName()
	}
}

// Run starts the TUI program. It returns when the user quits, ctx is
// cancelled or sub is closed.
func Run(ctx context.Context, refresh func() service.StateView, sub *events.Subscription) error {
	p := tea.NewProgram(NewModel(refresh), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		for ev := range sub.C() {
			p.Send(EventMsg{Event: ev})
		}
		// Subscription closed, quit TUI
		p.Quit()
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
