package game

import (
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/score"
	"github.com/lox/blackjack/internal/tracker"
)

// Snapshot is a read-only copy of the table for display layers and the
// spectator feed. The dealer's hole card never appears in it before the
// dealer's turn, not even in the card counts.
type Snapshot struct {
	SessionID   string       `json:"session_id"`
	Round       int          `json:"round"`
	Phase       Phase        `json:"phase"`
	ActiveSeat  int          `json:"active_seat"`
	Message     string       `json:"message"`
	Explanation string       `json:"explanation,omitempty"`
	Seats       []SeatView   `json:"seats"`
	Dealer      DealerView   `json:"dealer"`
	Shoe        ShoeView     `json:"shoe"`
	Results     []SeatResult `json:"results,omitempty"`
}

// SeatView is one seat as shown at the table
type SeatView struct {
	Index      int         `json:"index"`
	Name       string      `json:"name"`
	Control    Control     `json:"control"`
	Style      string      `json:"style,omitempty"`
	Hand       []deck.Card `json:"hand"`
	Score      int         `json:"score"`
	Chips      int         `json:"chips"`
	Bet        int         `json:"bet"`
	Busted     bool        `json:"busted"`
	Doubled    bool        `json:"doubled"`
	Done       bool        `json:"done"`
	SittingOut bool        `json:"sitting_out"`
	Natural    bool        `json:"natural"`
}

// CardView is a dealer card; concealed cards carry the zero Card
type CardView struct {
	Card      deck.Card `json:"card"`
	Concealed bool      `json:"concealed"`
}

// DealerView is the dealer's hand as shown at the table. Score is only set
// once the hand is revealed; UpValue is the exposed card's value.
type DealerView struct {
	Cards    []CardView `json:"cards"`
	Revealed bool       `json:"revealed"`
	Score    int        `json:"score,omitempty"`
	UpValue  int        `json:"up_value,omitempty"`
}

// ShoeView carries the counts for the card-counting display. Every count is
// taken from the cards a player has seen: while the dealer's hole card is
// concealed it is counted as remaining, not dealt, so Dealt always equals
// the sum of Ranks[].Dealt and Dealt+Remaining is the shoe size.
type ShoeView struct {
	Decks        int                 `json:"decks"`
	Remaining    int                 `json:"remaining"`
	Dealt        int                 `json:"dealt"`
	RunningCount int                 `json:"running_count"`
	TrueCount    int                 `json:"true_count"`
	Ranks        []tracker.RankCount `json:"ranks"`
	Cards        []tracker.CardCount `json:"cards"`
}

// Seat returns the view of seat i, or false when out of range
func (s Snapshot) Seat(i int) (SeatView, bool) {
	if i < 0 || i >= len(s.Seats) {
		return SeatView{}, false
	}
	return s.Seats[i], true
}

// Snapshot copies the current table state
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:   e.id,
		Round:       e.round,
		Phase:       e.phase,
		ActiveSeat:  e.active,
		Message:     e.message,
		Explanation: e.explanation,
		Seats:       make([]SeatView, 0, len(e.seats)),
		Results:     e.Results(),
	}

	for _, seat := range e.seats {
		view := SeatView{
			Index:      seat.Index,
			Name:       seat.Name,
			Control:    seat.Control,
			Hand:       append([]deck.Card(nil), seat.Hand...),
			Score:      seat.Score(),
			Chips:      seat.Chips,
			Bet:        seat.Bet,
			Busted:     seat.Busted,
			Doubled:    seat.Doubled,
			Done:       seat.Done,
			SittingOut: seat.SittingOut,
			Natural:    seat.IsNatural(),
		}
		if seat.Control == Computer && seat.Style != 0 {
			view.Style = seat.Style.String()
		}
		snap.Seats = append(snap.Seats, view)
	}

	var hole *deck.Card
	for i, c := range e.dealer.Hand {
		view := CardView{Card: c}
		if e.dealer.Concealed(i) {
			view = CardView{Concealed: true}
			hole = &e.dealer.Hand[i]
		}
		snap.Dealer.Cards = append(snap.Dealer.Cards, view)
	}
	snap.Dealer.Revealed = e.dealer.Revealed
	if e.dealer.Revealed {
		snap.Dealer.Score = e.dealer.Score()
	}
	if len(e.dealer.Hand) > 0 {
		snap.Dealer.UpValue = score.UpCardValue(e.dealer.UpCard())
	}

	visible := e.shoe.Dealt()
	if hole != nil {
		visible = withoutOne(visible, *hole)
	}
	decks := e.shoe.DeckCount()
	totals := tracker.Summarize(visible, decks)
	snap.Shoe = ShoeView{
		Decks:        decks,
		Remaining:    totals.Remaining,
		Dealt:        totals.Dealt,
		RunningCount: tracker.HighLowRunningCount(visible),
		TrueCount:    tracker.TrueCount(visible, decks),
		Ranks:        tracker.CountsByRank(visible, decks),
		Cards:        tracker.CountsByCard(visible, decks),
	}
	return snap
}

// withoutOne removes the last occurrence of c from cards
func withoutOne(cards []deck.Card, c deck.Card) []deck.Card {
	for i := len(cards) - 1; i >= 0; i-- {
		if cards[i] == c {
			return append(cards[:i], cards[i+1:]...)
		}
	}
	return cards
}
