package game

import (
	"fmt"
	"strings"

	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/shoe"
)

const (
	// MaxSeats is the largest table
	MaxSeats = 3

	// DefaultStartingChips is every seat's balance at the start of a session
	DefaultStartingChips = 10000
)

// NaturalPayout selects how a two-card 21 is paid
type NaturalPayout uint8

const (
	// EvenMoney treats a natural as an ordinary 21 settled against the dealer.
	EvenMoney NaturalPayout = iota
	// Bonus credits bet*5/2 as soon as the cards are dealt; the seat then
	// sits out the rest of the round.
	Bonus
)

// String returns the string representation of the payout mode
func (p NaturalPayout) String() string {
	if p == Bonus {
		return "bonus"
	}
	return "even_money"
}

// ParseNaturalPayout parses "even_money" or "bonus"
func ParseNaturalPayout(s string) (NaturalPayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "even_money", "even", "":
		return EvenMoney, nil
	case "bonus":
		return Bonus, nil
	}
	return 0, fmt.Errorf("unknown natural payout %q", s)
}

// Option configures an Engine during creation.
type Option func(*engineConfig)

type engineConfig struct {
	decks         int
	threshold     int
	startingChips int
	payout        NaturalPayout
	stakes        map[policy.Style]int
	shoe          *shoe.Shoe
	bus           EventBus
	clock         quartz.Clock
	sessionID     string
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		decks:         shoe.DefaultDecks,
		threshold:     shoe.DefaultReshuffleThreshold,
		startingChips: DefaultStartingChips,
		payout:        EvenMoney,
		stakes: map[policy.Style]int{
			policy.Aggressive:   policy.DefaultStake(policy.Aggressive),
			policy.Conservative: policy.DefaultStake(policy.Conservative),
		},
	}
}

// WithDecks sets the number of decks in the shoe (default 6).
func WithDecks(n int) Option {
	return func(c *engineConfig) {
		c.decks = n
	}
}

// WithReshuffleThreshold sets the low-water mark checked before each deal (default 15).
func WithReshuffleThreshold(n int) Option {
	return func(c *engineConfig) {
		c.threshold = n
	}
}

// WithShoe uses a prepared shoe instead of building one.
// WithDecks and WithReshuffleThreshold are ignored when it is set.
func WithShoe(s *shoe.Shoe) Option {
	return func(c *engineConfig) {
		c.shoe = s
	}
}

// WithStartingChips sets every seat's opening balance (default 10000).
func WithStartingChips(chips int) Option {
	return func(c *engineConfig) {
		c.startingChips = chips
	}
}

// WithNaturalPayout selects the natural payout convention (default EvenMoney).
func WithNaturalPayout(p NaturalPayout) Option {
	return func(c *engineConfig) {
		c.payout = p
	}
}

// WithStake overrides the fixed bet computer seats of a style place.
func WithStake(style policy.Style, amount int) Option {
	return func(c *engineConfig) {
		c.stakes[style] = amount
	}
}

// WithEventBus publishes engine events to bus.
func WithEventBus(bus EventBus) Option {
	return func(c *engineConfig) {
		c.bus = bus
	}
}

// WithClock sets the clock used to timestamp events (default real time).
func WithClock(clock quartz.Clock) Option {
	return func(c *engineConfig) {
		c.clock = clock
	}
}

// WithSessionID fixes the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(c *engineConfig) {
		c.sessionID = id
	}
}
