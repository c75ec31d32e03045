package game

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/shoe"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// newStackedEngine returns an engine whose shoe deals top first, in order.
func newStackedEngine(t *testing.T, top string, opts ...Option) *Engine {
	t.Helper()
	rng := randutil.New(42)
	var cards []deck.Card
	if top != "" {
		cards = deck.MustParseCards(top)
	}
	s, err := shoe.NewStacked(rng, shoe.DefaultDecks, cards)
	require.NoError(t, err)
	opts = append([]Option{WithShoe(s), WithSessionID("test-session")}, opts...)
	return NewEngine(rng, quietLogger(), opts...)
}

type recorder struct {
	events []GameEvent
}

func (r *recorder) OnEvent(event GameEvent) {
	r.events = append(r.events, event)
}

func (r *recorder) ofType(et EventType) []GameEvent {
	var out []GameEvent
	for _, e := range r.events {
		if e.EventType() == et {
			out = append(out, e)
		}
	}
	return out
}

type deciderFunc func(context.Context, policy.Situation) policy.Decision

func (f deciderFunc) Decide(ctx context.Context, s policy.Situation) policy.Decision {
	return f(ctx, s)
}
