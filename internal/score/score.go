// Package score computes blackjack hand totals.
package score

import "github.com/lox/blackjack/internal/deck"

const (
	// Blackjack is the best possible total
	Blackjack = 21

	// DealerStandsOn is the total at which the dealer stops drawing
	DealerStandsOn = 17
)

// CardValue returns the value a card contributes before soft-ace reduction:
// aces count 11, face cards 10, numerals their face value.
func CardValue(c deck.Card) int {
	switch {
	case c.Rank == deck.Ace:
		return 11
	case c.Rank.IsFace():
		return 10
	default:
		return int(c.Rank)
	}
}

// UpCardValue is the dealer's exposed card value used in policy thresholds
func UpCardValue(c deck.Card) int {
	return CardValue(c)
}

// Score returns the best total for hand. Aces start at 11 and are reduced to
// 1, one at a time, while the total is over 21. The result is the highest
// total not over 21, or the smallest bust total when none exists.
func Score(hand []deck.Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		total += CardValue(c)
		if c.IsAce() {
			aces++
		}
	}
	for total > Blackjack && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21
func IsNatural(hand []deck.Card) bool {
	return len(hand) == 2 && Score(hand) == Blackjack
}

// IsSoft reports whether the hand holds an ace and is not bust. This is the
// texture the computer players describe; it does not check that the ace is
// still counted as 11.
func IsSoft(hand []deck.Card) bool {
	if Score(hand) > Blackjack {
		return false
	}
	for _, c := range hand {
		if c.IsAce() {
			return true
		}
	}
	return false
}

// IsBust reports a total over 21
func IsBust(hand []deck.Card) bool {
	return Score(hand) > Blackjack
}
