package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/policy"
)

const sidebarMinWidth = 34

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)

	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderTablePane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), sidebarMinWidth)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

// renderTablePane draws the dealer, every seat and the optional tracker
func (m *Model) renderTablePane() string {
	var b strings.Builder
	snap := m.snap

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Blackjack · Round %d", snap.Round)))
	b.WriteString("\n\n")

	b.WriteString(renderDealer(snap.Dealer))
	b.WriteString("\n\n")

	for _, seat := range snap.Seats {
		b.WriteString(renderSeat(seat, seat.Index == snap.ActiveSeat))
		b.WriteString("\n")
	}

	if m.showTracker && snap.Shoe.Decks > 0 {
		b.WriteString("\n")
		b.WriteString(renderTracker(snap.Shoe))
	}
	return b.String()
}

func renderDealer(d game.DealerView) string {
	if len(d.Cards) == 0 {
		return TableStyle.Render("Dealer: -")
	}
	cards := make([]string, 0, len(d.Cards))
	for _, c := range d.Cards {
		if c.Concealed {
			cards = append(cards, HiddenCardStyle.Render("??"))
			continue
		}
		cards = append(cards, formatCard(c.Card))
	}
	line := "Dealer: [" + strings.Join(cards, " ") + "]"
	if d.Revealed {
		return line + fmt.Sprintf(" %d", d.Score)
	}
	return line + InfoStyle.Render(fmt.Sprintf(" shows %d", d.UpValue))
}

func renderSeat(s game.SeatView, active bool) string {
	name := s.Name
	if s.Style != "" {
		name += " (" + s.Style + ")"
	}
	marker, style := "  ", SeatStyle
	if active {
		marker, style = "▶ ", ActiveSeatStyle
	}

	var b strings.Builder
	b.WriteString(style.Render(marker + name))
	b.WriteString(fmt.Sprintf(" $%d", s.Chips))
	if s.Bet > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf(" bet $%d", s.Bet)))
	}
	b.WriteString("\n    ")

	switch {
	case s.SittingOut:
		b.WriteString(HelpStyle.Render("sitting out"))
	case len(s.Hand) == 0:
		b.WriteString(HelpStyle.Render("no cards"))
	default:
		b.WriteString(formatCards(s.Hand))
		b.WriteString(fmt.Sprintf(" %d", s.Score))
		switch {
		case s.Busted:
			b.WriteString(ErrorStyle.Render(" BUST"))
		case s.Natural:
			b.WriteString(SuccessStyle.Render(" BLACKJACK"))
		case s.Doubled:
			b.WriteString(WarningStyle.Render(" doubled"))
		}
	}
	return b.String()
}

// renderTracker shows the counts, remaining cards per rank, then one row
// of remaining cards per suit in rank order.
func renderTracker(shoe game.ShoeView) string {
	var b strings.Builder
	b.WriteString(InfoStyle.Render(fmt.Sprintf("Shoe: %d left, %d dealt", shoe.Remaining, shoe.Dealt)))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("Count %+d, true %+d", shoe.RunningCount, shoe.TrueCount)))
	for i, rc := range shoe.Ranks {
		if i%5 == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
		b.WriteString(fmt.Sprintf("%2s:%-3d", rc.Rank, rc.Remaining))
	}

	b.WriteString("\n")
	for i, cc := range shoe.Cards {
		if i%len(deck.Ranks) == 0 {
			b.WriteString("\n")
			b.WriteString(formatSuit(cc.Card.Suit))
		}
		b.WriteString(fmt.Sprintf(" %d", cc.Remaining))
	}
	return b.String()
}

func formatSuit(s deck.Suit) string {
	if s.IsRed() {
		return RedCardStyle.Render(s.String())
	}
	return BlackCardStyle.Render(s.String())
}

// renderActionPane shows the status message, the prompt and the input
func (m *Model) renderActionPane() string {
	var b strings.Builder

	if msg := m.snap.Message; msg != "" {
		b.WriteString(HandInfoStyle.Render(msg))
		b.WriteString("\n")
	}
	if m.snap.Explanation != "" {
		b.WriteString(InfoStyle.Render(m.snap.Explanation))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(ErrorStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(ActionsStyle.Render(m.prompt()))
	b.WriteString("\n")
	m.actionInput.Placeholder = m.placeholder()
	b.WriteString(m.actionInput.View())
	b.WriteString("\n")

	if m.focusedPane == 0 {
		b.WriteString(HelpStyle.Render("Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"))
	} else {
		b.WriteString(HelpStyle.Render("Tab to scroll log • 'end' to end the session • Ctrl+C to quit"))
	}
	return b.String()
}

// prompt names what the table is waiting for
func (m *Model) prompt() string {
	if m.busy {
		return "Computer seats are playing..."
	}
	switch m.snap.Phase {
	case game.PhaseModeSelect:
		return fmt.Sprintf("Players: 1-%d", game.MaxSeats)
	case game.PhaseStyleSelect:
		if seat, ok := m.pendingStyleSeat(); ok {
			return fmt.Sprintf("Style for %s: [a]ggressive [c]onservative", m.snap.Seats[seat].Name)
		}
	case game.PhaseBetting:
		if seat, ok := m.snap.Seat(m.snap.ActiveSeat); ok {
			return fmt.Sprintf("Bet for %s (chips $%d)", seat.Name, seat.Chips)
		}
	case game.PhasePlaying:
		actions := []string{SuccessStyle.Render("[h]it"), WarningStyle.Render("[s]tand")}
		if seat, ok := m.snap.Seat(m.snap.ActiveSeat); ok && len(seat.Hand) == 2 && seat.Chips >= seat.Bet {
			actions = append(actions, WarningStyle.Render("[d]ouble"))
		}
		actions = append(actions, HelpStyle.Render("s[p]lit"))
		return "Actions: " + strings.Join(actions, " ")
	case game.PhaseSettlement:
		return "Enter for the next round"
	}
	return ""
}

func (m *Model) placeholder() string {
	switch m.snap.Phase {
	case game.PhaseModeSelect:
		return "number of players"
	case game.PhaseStyleSelect:
		return "a or c"
	case game.PhaseBetting:
		if m.lastBet > 0 {
			return fmt.Sprintf("%d", m.lastBet)
		}
		return "amount"
	case game.PhasePlaying:
		return "hit, stand, double"
	}
	return ""
}

func formatCard(c deck.Card) string {
	if c.IsRed() {
		return RedCardStyle.Render(c.String())
	}
	return BlackCardStyle.Render(c.String())
}

func formatCards(cards []deck.Card) string {
	formatted := make([]string, 0, len(cards))
	for _, c := range cards {
		formatted = append(formatted, formatCard(c))
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

// formatEvent turns an engine event into a log line. Phase changes are not
// logged.
func formatEvent(event game.GameEvent) string {
	switch e := event.(type) {
	case game.RoundStartEvent:
		return fmt.Sprintf("\033[1m*** ROUND %d ***\033[0m", e.Round)
	case game.BetPlacedEvent:
		return fmt.Sprintf("%s bets $%d", e.Name, e.Amount)
	case game.CardDealtEvent:
		who := "Dealer"
		if e.Seat != game.DealerSeat {
			who = fmt.Sprintf("Player %d", e.Seat+1)
		}
		if e.Concealed {
			return who + " is dealt a hidden card"
		}
		return fmt.Sprintf("%s is dealt %s", who, e.Card)
	case game.SeatActionEvent:
		line := fmt.Sprintf("%s %s (%d)", e.Name, actionVerb(e.Action), e.Score)
		if e.Busted {
			line += " and busts"
		}
		return line
	case game.DealerPlayEvent:
		if e.Score > 21 {
			return fmt.Sprintf("Dealer busts with %s", deck.FormatCards(e.Hand))
		}
		return fmt.Sprintf("Dealer stands on %d with %s", e.Score, deck.FormatCards(e.Hand))
	case game.RoundSettledEvent:
		lines := make([]string, 0, len(e.Results))
		for _, r := range e.Results {
			lines = append(lines, r.Line())
		}
		return strings.Join(lines, "\n")
	case game.ReshuffleEvent:
		return fmt.Sprintf("Shoe reshuffled (%s), %d cards", e.Reason, e.Size)
	}
	return ""
}

func actionVerb(a policy.Action) string {
	switch a {
	case policy.Hit:
		return "hits"
	case policy.Stand:
		return "stands"
	case policy.Double:
		return "doubles down"
	}
	return strings.ToLower(a.String())
}
