package game

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/score"
)

// Control says who makes a seat's decisions
type Control uint8

const (
	Human Control = iota
	Computer
)

// String returns the string representation of the control type
func (c Control) String() string {
	switch c {
	case Human:
		return "human"
	case Computer:
		return "computer"
	default:
		return fmt.Sprintf("control(%d)", c)
	}
}

// MarshalText encodes the control type by name
func (c Control) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes "human" or "computer"
func (c *Control) UnmarshalText(b []byte) error {
	switch string(b) {
	case "human":
		*c = Human
	case "computer":
		*c = Computer
	default:
		return fmt.Errorf("unknown control %q", b)
	}
	return nil
}

// Seat is one player position at the table
type Seat struct {
	Index   int
	Name    string
	Control Control
	Style   policy.Style // zero for human seats
	Hand    []deck.Card
	Chips   int
	Bet     int // Bet this round, already debited from Chips

	Busted     bool
	Doubled    bool
	Done       bool // No further action this round
	SittingOut bool // Out of chips at the start of the round
	Paid       bool // Settled early by a natural bonus
}

// Score returns the seat's hand total
func (s *Seat) Score() int {
	return score.Score(s.Hand)
}

// IsNatural returns true if the seat was dealt 21 in two cards
func (s *Seat) IsNatural() bool {
	return score.IsNatural(s.Hand)
}

// CanDouble returns true if the seat holds two cards and can match its bet
func (s *Seat) CanDouble() bool {
	return len(s.Hand) == 2 && s.Chips >= s.Bet
}

// InRound returns true if the seat was dealt into the current round
func (s *Seat) InRound() bool {
	return !s.SittingOut && s.Bet > 0
}

func (s *Seat) clearRound() {
	s.Hand = nil
	s.Bet = 0
	s.Busted = false
	s.Doubled = false
	s.Done = false
	s.Paid = false
	s.SittingOut = s.Chips <= 0
}

// Dealer is the house hand. Card 0 is exposed; the rest stay concealed until
// the dealer's turn.
type Dealer struct {
	Hand     []deck.Card
	Revealed bool
}

// UpCard returns the exposed card, or the zero Card before the deal
func (d *Dealer) UpCard() deck.Card {
	if len(d.Hand) == 0 {
		return deck.Card{}
	}
	return d.Hand[0]
}

// Score returns the dealer's full hand total
func (d *Dealer) Score() int {
	return score.Score(d.Hand)
}

// Concealed returns true if card i is hidden from the table
func (d *Dealer) Concealed(i int) bool {
	return !d.Revealed && i > 0
}
