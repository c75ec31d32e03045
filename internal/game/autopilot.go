package game

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/policy"
)

// DefaultThinkDelay is the cosmetic pause before a computer seat's action
// takes effect
const DefaultThinkDelay = 1500 * time.Millisecond

// Pacer inserts display delays between decided actions. A zero delay
// returns immediately.
type Pacer struct {
	clock quartz.Clock
	delay time.Duration
}

// NewPacer creates a pacer waiting delay on clock
func NewPacer(clock quartz.Clock, delay time.Duration) *Pacer {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Pacer{clock: clock, delay: delay}
}

// Wait blocks for the pacing delay or until ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.delay <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	timer := p.clock.AfterFunc(p.delay, func() { close(done) }, "game", "pacer")
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}

// Autopilot plays every consecutive computer turn on an Engine. It runs on
// the caller's goroutine, so two seats' actions can never interleave.
type Autopilot struct {
	engine  *Engine
	decider policy.Decider
	pacer   *Pacer
	logger  *log.Logger

	// OnChange, when set, is called after each visible change (thinking
	// message, applied action) so a display can redraw.
	OnChange func(Snapshot)
}

// NewAutopilot creates an autopilot for engine. A nil pacer means no delay.
func NewAutopilot(engine *Engine, decider policy.Decider, pacer *Pacer, logger *log.Logger) *Autopilot {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Autopilot{
		engine:  engine,
		decider: decider,
		pacer:   pacer,
		logger:  logger.WithPrefix("autopilot"),
	}
}

// Run resolves computer turns until a human seat is active or the round has
// left Playing. It returns the number of actions applied.
func (a *Autopilot) Run(ctx context.Context) (int, error) {
	applied := 0
	for a.engine.ActiveIsComputer() {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := a.Step(ctx); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Step decides and applies a single action for the active computer seat
func (a *Autopilot) Step(ctx context.Context) error {
	situation, ok := a.engine.Situation()
	if !ok || !a.engine.ActiveIsComputer() {
		return ErrIllegalAction
	}

	a.engine.MarkThinking()
	a.notify()

	decision := a.decider.Decide(ctx, situation)
	if decision.Action == policy.Double && !situation.CanDouble() {
		decision = policy.Evaluate(situation)
	}
	a.logger.Debug("Decided", "seat", situation.Name, "action", decision.Action,
		"source", decision.Source, "reason", decision.Reason)

	if err := a.pacer.Wait(ctx); err != nil {
		return err
	}
	if err := a.engine.ApplyDecision(decision); err != nil {
		return err
	}
	a.notify()
	return nil
}

func (a *Autopilot) notify() {
	if a.OnChange != nil {
		a.OnChange(a.engine.Snapshot())
	}
}
