package tui

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/shoe"
)

func newTestModel(t *testing.T, top string) *Model {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	rng := randutil.New(7)
	s, err := shoe.NewStacked(rng, shoe.DefaultDecks, deck.MustParseCards(top))
	require.NoError(t, err)
	engine := game.NewEngine(rng, logger, game.WithShoe(s))
	return NewModel(engine, policy.Rules{}, nil, logger)
}

// drive runs cmd and every command that follows from it, the way the
// Bubble Tea runtime would.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 50, "autopilot did not settle")
		_, cmd = m.Update(cmd())
	}
}

func TestSingleSeatRound(t *testing.T) {
	t.Parallel()

	// seat 10♥ 9♦, dealer 9♣ 8♠
	m := newTestModel(t, "10h 9c 9d 8s")

	require.Nil(t, m.Submit("1"))
	assert.Equal(t, game.PhaseBetting, m.Snapshot().Phase)

	require.Nil(t, m.Submit("100"))
	snap := m.Snapshot()
	require.Equal(t, game.PhasePlaying, snap.Phase)
	assert.True(t, snap.Dealer.Cards[1].Concealed)

	require.Nil(t, m.Submit("stand"))
	snap = m.Snapshot()
	assert.Equal(t, game.PhaseSettlement, snap.Phase)
	assert.Equal(t, "Dealer: 17\n\nPlayer 1: +$200", snap.Message)
	assert.Equal(t, 10200, snap.Seats[0].Chips)
	assert.Contains(t, m.Log(), "Player 1 bets $100")
	assert.Contains(t, m.Log(), "Player 1: +$200")

	// Enter repeats the last bet in the next round
	require.Nil(t, m.Submit(""))
	assert.Equal(t, game.PhaseBetting, m.Snapshot().Phase)
	require.Nil(t, m.Submit(""))
	assert.Equal(t, 100, m.Snapshot().Seats[0].Bet)
}

func TestComputerSeatsPlayThroughCommands(t *testing.T) {
	t.Parallel()

	// seat 1 10♥ 9♦, seat 2 10♣ 7♠, dealer 9♣ 8♠
	m := newTestModel(t, "10h 10c 9c 9d 7s 8s")

	require.Nil(t, m.Submit("2"))
	assert.Equal(t, game.PhaseStyleSelect, m.Snapshot().Phase)
	assert.Contains(t, m.prompt(), "Style for Player 2")

	require.Nil(t, m.Submit("c"))
	require.Nil(t, m.Submit("100"))
	require.Equal(t, game.PhasePlaying, m.Snapshot().Phase)
	assert.Equal(t, 50, m.Snapshot().Seats[1].Bet)

	cmd := m.Submit("s")
	require.NotNil(t, cmd, "computer seat should be scheduled")
	assert.True(t, m.Busy())
	assert.Equal(t, "Player 2 is thinking...", m.Snapshot().Message)

	drive(t, m, cmd)
	assert.False(t, m.Busy())

	snap := m.Snapshot()
	assert.Equal(t, game.PhaseSettlement, snap.Phase)
	assert.Equal(t, "Dealer: 17\n\nPlayer 1: +$200\nPlayer 2: Push", snap.Message)
	assert.Equal(t, "Player 2: Playing safe on 15+", snap.Explanation)
	assert.Contains(t, m.Log(), "Player 2 stands (17)")
}

func TestInputIsRejectedWhileBusy(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "10h 10c 9c 9d 7s 8s")
	require.Nil(t, m.Submit("2"))
	require.Nil(t, m.Submit("a"))
	require.Nil(t, m.Submit("100"))

	cmd := m.Submit("s")
	require.NotNil(t, cmd)

	assert.Nil(t, m.Submit("h"))
	assert.Equal(t, "Wait for the computer seats to finish", m.Notice())
	drive(t, m, cmd)
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  []string
		input  string
		notice string
		phase  game.Phase
	}{
		{"seat count not a number", nil, "many", "Enter a number of players (1-3)", game.PhaseModeSelect},
		{"unknown style", []string{"2"}, "wild", "Choose (a)ggressive or (c)onservative", game.PhaseStyleSelect},
		{"bet not a number", []string{"1"}, "lots", "Enter a bet amount", game.PhaseBetting},
		{"unknown action", []string{"1", "100"}, "fold", "Actions: (h)it, (s)tand, (d)ouble, s(p)lit", game.PhasePlaying},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestModel(t, "10h 9c 9d 8s")
			for _, in := range tt.setup {
				require.Nil(t, m.Submit(in))
			}
			m.Submit(tt.input)
			assert.Equal(t, tt.notice, m.Notice())
			assert.Equal(t, tt.phase, m.Snapshot().Phase)
		})
	}
}

func TestEngineMessagesReachTheDisplay(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "10h 9c 9d 8s")
	require.Nil(t, m.Submit("1"))

	m.Submit("20000")
	assert.Equal(t, "Not enough chips!", m.Snapshot().Message)

	require.Nil(t, m.Submit("100"))
	m.Submit("split")
	assert.Equal(t, "Split is not available", m.Snapshot().Message)
	assert.Equal(t, game.PhasePlaying, m.Snapshot().Phase)
}

func TestEndSession(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "10h 9c 9d 8s")
	require.Nil(t, m.Submit("1"))
	require.Nil(t, m.Submit("100"))

	require.Nil(t, m.Submit("end"))
	snap := m.Snapshot()
	assert.Equal(t, game.PhaseModeSelect, snap.Phase)
	assert.Empty(t, snap.Seats)
	assert.Equal(t, "Select number of players", snap.Message)
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "10h 9c 9d 8s")
	cmd := m.Submit("quit")
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestViewHidesHoleCard(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "10h 9c 9d 8s")
	assert.Equal(t, "Loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Nil(t, m.Submit("1"))
	require.Nil(t, m.Submit("100"))

	view := m.View()
	assert.Contains(t, view, "Dealer:")
	assert.Contains(t, view, "??")
	assert.Contains(t, view, "shows 9")
	assert.NotContains(t, view, "8♠")

	m.Submit("s")
	assert.Contains(t, m.View(), "8♠")
}

func TestRenderTracker(t *testing.T) {
	t.Parallel()

	// seat 10♥ 9♦, dealer 9♣ with the 8♠ concealed
	m := newTestModel(t, "10h 9c 9d 8s")
	require.Nil(t, m.Submit("1"))
	require.Nil(t, m.Submit("100"))

	shoe := m.Snapshot().Shoe
	assert.Equal(t, 3, shoe.Dealt)
	assert.Equal(t, -1, shoe.RunningCount)
	assert.Zero(t, shoe.TrueCount)

	out := renderTracker(shoe)
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "Shoe: 309 left, 3 dealt")
	assert.Contains(t, lines[1], "Count -1, true +0")
	assert.Contains(t, out, " 9:22 ")
	assert.Contains(t, out, " 8:24 ")

	// suit rows follow the rank grid, ranks A through K
	require.GreaterOrEqual(t, len(lines), 4)
	suits := lines[len(lines)-4:]
	assert.Contains(t, suits[0], "♥")
	assert.True(t, strings.HasSuffix(suits[0], " 6 6 6 6 6 6 6 6 6 5 6 6 6"), suits[0])
	assert.True(t, strings.HasSuffix(suits[3], " 6 6 6 6 6 6 6 6 6 6 6 6 6"), "hole card stays unseen: %s", suits[3])
}

func TestFormatEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event game.GameEvent
		want  string
	}{
		{"bet", game.BetPlacedEvent{Name: "Player 1", Amount: 100}, "Player 1 bets $100"},
		{"hidden card", game.CardDealtEvent{Seat: game.DealerSeat, Concealed: true}, "Dealer is dealt a hidden card"},
		{"seat card", game.CardDealtEvent{Seat: 1, Card: deck.NewCard(deck.Ace, deck.Spades)}, "Player 2 is dealt A♠"},
		{"bust", game.SeatActionEvent{Name: "Player 1", Action: policy.Hit, Score: 24, Busted: true}, "Player 1 hits (24) and busts"},
		{"double", game.SeatActionEvent{Name: "Player 3", Action: policy.Double, Score: 20}, "Player 3 doubles down (20)"},
		{"reshuffle", game.ReshuffleEvent{Reason: "low water mark", Size: 312}, "Shoe reshuffled (low water mark), 312 cards"},
		{"phase change", game.PhaseChangeEvent{From: game.PhaseBetting, To: game.PhasePlaying}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEvent(tt.event))
		})
	}
}
