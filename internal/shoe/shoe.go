// Package shoe implements the multi-deck card shoe shared by every seat at
// the table.
//
// A Shoe keeps the undealt cards (drawn from the tail) and the history of
// cards dealt since it was last built. Between rebuilds
//
//	Remaining() + DealtCount() == DeckCount() * 52
//
// always holds. The history is what the card tracker reads, so it is exposed
// rather than just a remaining count.
package shoe

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/blackjack/internal/deck"
)

const (
	// DefaultDecks is the number of 52-card decks in a standard shoe
	DefaultDecks = 6

	// DefaultReshuffleThreshold is the low-water mark below which the shoe
	// is rebuilt before the next round is dealt
	DefaultReshuffleThreshold = 15
)

// ErrEmptyShoe is returned by Draw when no cards remain.
var ErrEmptyShoe = errors.New("shoe is empty")

// Shoe is the ordered pool of undealt cards plus the dealt history.
type Shoe struct {
	cards     []deck.Card
	dealt     []deck.Card
	deckCount int
	threshold int
	rng       *rand.Rand
}

// Option configures a Shoe during creation.
type Option func(*Shoe)

// WithReshuffleThreshold overrides the low-water mark (default 15).
func WithReshuffleThreshold(n int) Option {
	return func(s *Shoe) {
		s.threshold = n
	}
}

// New builds a freshly shuffled shoe of deckCount decks.
// The RNG is required to keep shuffles reproducible in tests and replays.
func New(rng *rand.Rand, deckCount int, opts ...Option) *Shoe {
	if rng == nil {
		panic("rng is required for shoe creation")
	}
	if deckCount < 1 {
		panic("at least one deck required")
	}

	s := &Shoe{
		deckCount: deckCount,
		threshold: DefaultReshuffleThreshold,
		rng:       rng,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Reshuffle()
	return s
}

// NewStacked builds a full shoe whose next draws are top, in order. The
// remaining cards stay shuffled. It fails if top asks for more copies of a
// card than the shoe holds.
func NewStacked(rng *rand.Rand, deckCount int, top []deck.Card, opts ...Option) (*Shoe, error) {
	s := New(rng, deckCount, opts...)

	for _, want := range top {
		idx := -1
		for i, c := range s.cards {
			if c == want {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("cannot stack %s: no copies left in a %d-deck shoe", want, deckCount)
		}
		s.cards = append(s.cards[:idx], s.cards[idx+1:]...)
	}

	// Draws pop the tail, so the first stacked card goes last.
	for i := len(top) - 1; i >= 0; i-- {
		s.cards = append(s.cards, top[i])
	}
	return s, nil
}

// Reshuffle discards the dealt history and replaces the shoe's contents
// with a fresh full set in random order.
func (s *Shoe) Reshuffle() {
	s.cards = deck.NewSet(s.deckCount)
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
	s.dealt = make([]deck.Card, 0, len(s.cards))
}

// Draw removes the next card and records it in the dealt history.
func (s *Shoe) Draw() (deck.Card, error) {
	if len(s.cards) == 0 {
		return deck.Card{}, ErrEmptyShoe
	}
	last := len(s.cards) - 1
	card := s.cards[last]
	s.cards = s.cards[:last]
	s.dealt = append(s.dealt, card)
	return card, nil
}

// NeedsReshuffle reports whether the remaining count is below the
// low-water mark.
func (s *Shoe) NeedsReshuffle() bool {
	return len(s.cards) < s.threshold
}

// Remaining returns the number of undealt cards
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// DealtCount returns the number of cards dealt since the last rebuild
func (s *Shoe) DealtCount() int {
	return len(s.dealt)
}

// Dealt returns a copy of the dealt history, oldest first
func (s *Shoe) Dealt() []deck.Card {
	out := make([]deck.Card, len(s.dealt))
	copy(out, s.dealt)
	return out
}

// DeckCount returns the number of decks the shoe is built from
func (s *Shoe) DeckCount() int {
	return s.deckCount
}

// Size returns the full card count of the shoe (DeckCount * 52)
func (s *Shoe) Size() int {
	return s.deckCount * 52
}

// ReshuffleThreshold returns the configured low-water mark
func (s *Shoe) ReshuffleThreshold() int {
	return s.threshold
}
