// Package tracker derives remaining-card statistics from a shoe's dealt
// history for the counting display.
//
// Every function recomputes from the history it is given; nothing is cached,
// so the counts can never drift from what the shoe actually dealt.
package tracker

import "github.com/lox/blackjack/internal/deck"

// RankCount is the dealt/remaining tally for one rank across all suits
type RankCount struct {
	Rank      deck.Rank
	Dealt     int
	Remaining int
}

// CardCount is the dealt/remaining tally for one rank and suit
type CardCount struct {
	Card      deck.Card
	Dealt     int
	Remaining int
}

// Summary holds shoe-wide totals
type Summary struct {
	Dealt     int
	Remaining int
}

// CountsByRank returns one entry per rank in display order (A, 2..10, J, Q, K).
// A shoe of deckCount decks holds deckCount*4 cards of each rank.
func CountsByRank(dealt []deck.Card, deckCount int) []RankCount {
	var seen [deck.King + 1]int
	for _, c := range dealt {
		if c.Rank.Valid() {
			seen[c.Rank]++
		}
	}

	counts := make([]RankCount, 0, len(deck.Ranks))
	for _, rank := range deck.Ranks {
		counts = append(counts, RankCount{
			Rank:      rank,
			Dealt:     seen[rank],
			Remaining: deckCount*len(deck.Suits) - seen[rank],
		})
	}
	return counts
}

// CountsByCard returns one entry per rank and suit, suits grouped in shoe
// order. A shoe of deckCount decks holds deckCount copies of each card.
func CountsByCard(dealt []deck.Card, deckCount int) []CardCount {
	seen := make(map[deck.Card]int, 52)
	for _, c := range dealt {
		seen[c]++
	}

	counts := make([]CardCount, 0, 52)
	for _, suit := range deck.Suits {
		for _, rank := range deck.Ranks {
			c := deck.NewCard(rank, suit)
			counts = append(counts, CardCount{
				Card:      c,
				Dealt:     seen[c],
				Remaining: deckCount - seen[c],
			})
		}
	}
	return counts
}

// Summarize returns the shoe-wide dealt and remaining totals
func Summarize(dealt []deck.Card, deckCount int) Summary {
	return Summary{
		Dealt:     len(dealt),
		Remaining: deckCount*52 - len(dealt),
	}
}

// HighLowRunningCount returns the Hi-Lo running count of the dealt cards:
// 2-6 count +1, 7-9 count 0, tens, faces and aces count -1.
func HighLowRunningCount(dealt []deck.Card) int {
	count := 0
	for _, c := range dealt {
		switch {
		case c.Rank >= deck.Two && c.Rank <= deck.Six:
			count++
		case c.Rank == deck.Ace || c.Rank >= deck.Ten:
			count--
		}
	}
	return count
}

// TrueCount divides the running count by the decks still in the shoe,
// rounded toward zero. It returns 0 for an exhausted shoe.
func TrueCount(dealt []deck.Card, deckCount int) int {
	remaining := deckCount*52 - len(dealt)
	if remaining <= 0 {
		return 0
	}
	return HighLowRunningCount(dealt) * 52 / remaining
}
