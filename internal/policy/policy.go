// Package policy decides actions for computer-controlled seats.
//
// Decisions come from a Decider. Rules is the deterministic local policy and
// doubles as each style's personality baseline. Advised consults an external
// Advisor first and falls back to Rules on any failure, so a Decider always
// produces an action.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/score"
)

// Action is a playing decision. Split is deliberately absent.
type Action uint8

const (
	Hit Action = iota + 1
	Stand
	Double
)

// String returns the action token used by the advisory protocol
func (a Action) String() string {
	switch a {
	case Hit:
		return "HIT"
	case Stand:
		return "STAND"
	case Double:
		return "DOUBLE"
	default:
		return "UNKNOWN"
	}
}

// ParseAction parses HIT, STAND or DOUBLE (case-insensitive)
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIT", "H":
		return Hit, nil
	case "STAND", "S":
		return Stand, nil
	case "DOUBLE", "D":
		return Double, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Style is a computer seat's playing personality
type Style uint8

const (
	Aggressive Style = iota + 1
	Conservative
)

// Styles lists the selectable styles
var Styles = [...]Style{Aggressive, Conservative}

// String returns the string representation of the style
func (s Style) String() string {
	switch s {
	case Aggressive:
		return "aggressive"
	case Conservative:
		return "conservative"
	default:
		return "unset"
	}
}

// ParseStyle parses "aggressive" or "conservative" ("safe" is accepted too)
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aggressive", "a":
		return Aggressive, nil
	case "conservative", "safe", "c":
		return Conservative, nil
	}
	return 0, fmt.Errorf("unknown style %q", s)
}

// DefaultStake is the fixed bet a computer seat places each round
func DefaultStake(s Style) int {
	if s == Aggressive {
		return 100
	}
	return 50
}

// Source records where a decision came from
type Source string

const (
	SourceRules   Source = "rules"
	SourceAdvisor Source = "advisor"
)

// Decision is an action plus a short rationale for display
type Decision struct {
	Action Action
	Reason string
	Source Source
}

// Situation is the read-only state a decision is made from
type Situation struct {
	Name     string
	Hand     []deck.Card
	DealerUp deck.Card
	Chips    int
	Bet      int
	Style    Style
}

// Score returns the hand total
func (s Situation) Score() int {
	return score.Score(s.Hand)
}

// CanDouble reports whether doubling is allowed: two cards and enough chips
// left to match the bet.
func (s Situation) CanDouble() bool {
	return len(s.Hand) == 2 && s.Chips >= s.Bet
}

// IsSoft reports the hand's soft texture
func (s Situation) IsSoft() bool {
	return score.IsSoft(s.Hand)
}

// DealerValue returns the exposed dealer card's threshold value
func (s Situation) DealerValue() int {
	return score.UpCardValue(s.DealerUp)
}

// Describe renders the situation as the sentence sent to the advisor
func (s Situation) Describe() string {
	soft := ""
	if s.IsSoft() {
		soft = " (soft)"
	}
	return fmt.Sprintf("%s hand %s, score %d%s, dealer %s, chips %d, bet %d, can double %t",
		s.Name, deck.FormatCards(s.Hand), s.Score(), soft, s.DealerUp, s.Chips, s.Bet, s.CanDouble())
}

// Decider produces an action for a computer seat. Implementations must
// always return a usable decision.
type Decider interface {
	Decide(ctx context.Context, s Situation) Decision
}
