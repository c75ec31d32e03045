package game

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/score"
)

// Outcome is how a seat's hand finished against the dealer
type Outcome uint8

const (
	OutcomeLose Outcome = iota
	OutcomeWin
	OutcomePush
	OutcomeBust
	OutcomeNatural // paid early under the Bonus payout
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomePush:
		return "push"
	case OutcomeBust:
		return "bust"
	case OutcomeNatural:
		return "natural"
	default:
		return "lose"
	}
}

// MarshalText encodes the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name
func (o *Outcome) UnmarshalText(b []byte) error {
	for _, candidate := range []Outcome{OutcomeLose, OutcomeWin, OutcomePush, OutcomeBust, OutcomeNatural} {
		if candidate.String() == string(b) {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// SeatResult is one seat's settlement. Credit is what was paid back to the
// seat's chips; Net is Credit minus the (already debited) bet.
type SeatResult struct {
	Seat    int     `json:"seat"`
	Name    string  `json:"name"`
	Outcome Outcome `json:"outcome"`
	Bet     int     `json:"bet"`
	Credit  int     `json:"credit"`
	Net     int     `json:"net"`
}

// Settle resolves a seat's final score against the dealer's. The bet has
// already been debited, so a loss credits nothing and a win credits the
// stake plus twice the stake.
func Settle(seatScore, dealerScore, bet int) (Outcome, int) {
	switch {
	case seatScore > score.Blackjack:
		return OutcomeBust, 0
	case dealerScore > score.Blackjack, seatScore > dealerScore:
		return OutcomeWin, bet + 2*bet
	case seatScore < dealerScore:
		return OutcomeLose, 0
	default:
		return OutcomePush, bet
	}
}

// NaturalBonus is the credit for a natural under the Bonus payout. Chips are
// whole units, so an odd bet rounds down: a 25 bet is credited 62, not 62.5.
func NaturalBonus(bet int) int {
	return bet * 5 / 2
}

func newResult(seat *Seat, outcome Outcome, credit int) SeatResult {
	return SeatResult{
		Seat:    seat.Index,
		Name:    seat.Name,
		Outcome: outcome,
		Bet:     seat.Bet,
		Credit:  credit,
		Net:     credit - seat.Bet,
	}
}

// Line renders the result the way the table announces it
func (r SeatResult) Line() string {
	switch r.Outcome {
	case OutcomeBust:
		return fmt.Sprintf("%s: BUST", r.Name)
	case OutcomeWin:
		return fmt.Sprintf("%s: +$%d", r.Name, r.Credit-r.Bet)
	case OutcomeNatural:
		return fmt.Sprintf("%s: BLACKJACK +$%d", r.Name, r.Net)
	case OutcomePush:
		return fmt.Sprintf("%s: Push", r.Name)
	default:
		return fmt.Sprintf("%s: Lost $%d", r.Name, r.Bet)
	}
}

func settlementMessage(dealerScore int, results []SeatResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dealer: %d\n", dealerScore)
	for _, r := range results {
		b.WriteString("\n")
		b.WriteString(r.Line())
	}
	return b.String()
}
