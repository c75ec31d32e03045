package game

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/policy"
)

func TestPacer(t *testing.T) {
	t.Parallel()

	t.Run("zero delay returns immediately", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, NewPacer(quartz.NewMock(t), 0).Wait(t.Context()))
		var nilPacer *Pacer
		require.NoError(t, nilPacer.Wait(t.Context()))
	})

	t.Run("waits for the clock", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		mockClock := quartz.NewMock(t)
		pacer := NewPacer(mockClock, time.Second)
		done := make(chan error, 1)
		go func() { done <- pacer.Wait(ctx) }()

		waitWithClock(t, ctx, mockClock, done)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		err := NewPacer(quartz.NewMock(t), time.Hour).Wait(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

// waitWithClock fires the mock clock's pending timers until done delivers.
func waitWithClock(t *testing.T, ctx context.Context, mockClock *quartz.Mock, done <-chan error) {
	t.Helper()
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		case <-ctx.Done():
			t.Fatal("timed out waiting for the clock")
		default:
			if d, ok := mockClock.Peek(); ok {
				mockClock.Advance(d).MustWait(ctx)
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func TestAutopilotPacedRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	e := newStackedEngine(t, "10h 5c 10d 10s 9h 6c 6d 7s 9c")
	require.NoError(t, e.SelectSeatCount(3))
	require.NoError(t, e.SelectComputerStyle(1, policy.Aggressive))
	require.NoError(t, e.SelectComputerStyle(2, policy.Conservative))
	require.NoError(t, e.PlaceBet(100))
	require.NoError(t, e.Stand())

	mockClock := quartz.NewMock(t)
	pilot := NewAutopilot(e, policy.Rules{}, NewPacer(mockClock, DefaultThinkDelay), quietLogger())

	var thinking []string
	pilot.OnChange = func(s Snapshot) {
		if s.Phase == PhasePlaying {
			thinking = append(thinking, s.Message)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := pilot.Run(ctx)
		done <- err
	}()
	waitWithClock(t, ctx, mockClock, done)

	assert.Equal(t, PhaseSettlement, e.Phase())
	assert.Equal(t, 10400, e.Chips(1))
	assert.Contains(t, thinking, "Player 2 is thinking...")
	assert.Contains(t, thinking, "Player 3 is thinking...")
}

func TestAutopilotRejectsImpossibleDouble(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	rec := &recorder{}
	bus.Subscribe(rec)

	// Player 2 bets its whole balance, so it can never double.
	e := newStackedEngine(t, "10h 5c 10s 7h 6c 7c",
		WithStartingChips(100), WithStake(policy.Conservative, 100), WithEventBus(bus))
	require.NoError(t, e.SelectSeatCount(2))
	require.NoError(t, e.SelectComputerStyle(1, policy.Conservative))
	require.NoError(t, e.PlaceBet(100))
	require.NoError(t, e.Stand())

	alwaysDouble := deciderFunc(func(context.Context, policy.Situation) policy.Decision {
		return policy.Decision{Action: policy.Double, Reason: "why not", Source: policy.SourceAdvisor}
	})
	applied, err := NewAutopilot(e, alwaysDouble, nil, quietLogger()).Run(t.Context())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, applied, 1)
	assert.Equal(t, PhaseSettlement, e.Phase())

	actions := rec.ofType(EventTypeSeatAction)
	require.GreaterOrEqual(t, len(actions), 2)
	first := actions[1].(SeatActionEvent)
	assert.Equal(t, 1, first.Seat)
	assert.Equal(t, policy.Hit, first.Action, "conservative 11 without chips to double hits")
	for _, ev := range actions {
		assert.NotEqual(t, policy.Double, ev.(SeatActionEvent).Action)
	}
}

func TestAutopilotIdleOnHumanTurn(t *testing.T) {
	t.Parallel()

	e := newStackedEngine(t, "10h 5c 10d 10s 9h 6c 6d 7s")
	require.NoError(t, e.SelectSeatCount(3))
	require.NoError(t, e.SelectComputerStyle(1, policy.Aggressive))
	require.NoError(t, e.SelectComputerStyle(2, policy.Conservative))
	require.NoError(t, e.PlaceBet(100))

	applied, err := NewAutopilot(e, policy.Rules{}, nil, quietLogger()).Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Equal(t, 0, e.ActiveSeat())
	require.ErrorIs(t, NewAutopilot(e, policy.Rules{}, nil, quietLogger()).Step(t.Context()), ErrIllegalAction)
}
