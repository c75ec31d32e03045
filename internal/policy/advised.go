package policy

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// DefaultAdvisoryTimeout bounds how long a computer seat waits for advice
const DefaultAdvisoryTimeout = 8 * time.Second

// ErrAdvisoryUnavailable wraps every advisory failure: transport errors,
// timeouts and responses that do not carry a usable action.
var ErrAdvisoryUnavailable = errors.New("advisory unavailable")

// Prompt is a single advisory request
type Prompt struct {
	Style       Style
	Text        string
	Temperature float64
	MaxTokens   int
}

// Advisor is an external decision service. It returns the raw response text.
type Advisor interface {
	Advise(ctx context.Context, prompt Prompt) (string, error)
}

// AdvisorFunc adapts a function to the Advisor interface
type AdvisorFunc func(ctx context.Context, prompt Prompt) (string, error)

// Advise implements Advisor
func (f AdvisorFunc) Advise(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

const responseFormat = "Respond ONLY: ACTION: [HIT/STAND/DOUBLE] - REASON: [10 words max]"

// BuildPrompt renders the style's instructions around the situation.
func BuildPrompt(s Situation) Prompt {
	if s.Style == Aggressive {
		return Prompt{
			Style:       s.Style,
			Text:        "You are an aggressive blackjack player. Always hit if total is 16 or less. Hit on soft 17. Double frequently. Current: " + s.Describe() + ". " + responseFormat,
			Temperature: 0.9,
			MaxTokens:   100,
		}
	}
	return Prompt{
		Style:       s.Style,
		Text:        "You are a safe blackjack player. Stand on 15+. Stand on 12+ vs strong dealer. Only double 10-11 vs weak dealer. Current: " + s.Describe() + ". " + responseFormat,
		Temperature: 0.3,
		MaxTokens:   100,
	}
}

var (
	actionPattern = regexp.MustCompile(`(?i)ACTION:\s*(HIT|STAND|DOUBLE)\b`)
	reasonPattern = regexp.MustCompile(`(?i)REASON:\s*(.+)`)
)

const defaultReason = "Playing it safe"

// ParseAdvice extracts the action token and rationale from a response. A
// response without a recognised action is an error; a missing rationale is
// not.
func ParseAdvice(text string) (Action, string, error) {
	m := actionPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, "", fmt.Errorf("%w: no action in response %q", ErrAdvisoryUnavailable, truncate(text, 80))
	}
	action, err := ParseAction(m[1])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrAdvisoryUnavailable, err)
	}

	reason := defaultReason
	if r := reasonPattern.FindStringSubmatch(text); r != nil {
		if trimmed := strings.TrimSpace(r[1]); trimmed != "" {
			reason = trimmed
		}
	}
	return action, reason, nil
}

// Advised asks an Advisor first and falls back to a local Decider.
type Advised struct {
	advisor  Advisor
	fallback Decider
	clock    quartz.Clock
	timeout  time.Duration
	logger   *log.Logger
}

// AdvisedOption configures an Advised decider
type AdvisedOption func(*Advised)

// WithClock sets the clock used for the advisory deadline
func WithClock(clock quartz.Clock) AdvisedOption {
	return func(a *Advised) { a.clock = clock }
}

// WithTimeout sets the advisory deadline (default 8s)
func WithTimeout(d time.Duration) AdvisedOption {
	return func(a *Advised) { a.timeout = d }
}

// WithFallback replaces the local policy (default Rules)
func WithFallback(d Decider) AdvisedOption {
	return func(a *Advised) { a.fallback = d }
}

// NewAdvised creates a decider that consults advisor. A nil advisor is
// allowed and means every decision comes from the fallback.
func NewAdvised(advisor Advisor, logger *log.Logger, opts ...AdvisedOption) *Advised {
	a := &Advised{
		advisor:  advisor,
		fallback: Rules{},
		clock:    quartz.NewReal(),
		timeout:  DefaultAdvisoryTimeout,
		logger:   logger.WithPrefix("policy"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Decide implements Decider
func (a *Advised) Decide(ctx context.Context, s Situation) Decision {
	d, err := a.consult(ctx, s)
	if err != nil {
		a.logger.Warn("Advisory failed, using local rules", "seat", s.Name, "error", err)
		return a.fallback.Decide(ctx, s)
	}
	a.logger.Debug("Advisory decision", "seat", s.Name, "action", d.Action, "reason", d.Reason)
	return d
}

type advice struct {
	text string
	err  error
}

func (a *Advised) consult(ctx context.Context, s Situation) (Decision, error) {
	if a.advisor == nil {
		return Decision{}, fmt.Errorf("%w: no advisor configured", ErrAdvisoryUnavailable)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := a.clock.AfterFunc(a.timeout, cancel, "policy", "advisory")
	defer timer.Stop()

	// Buffered so the request goroutine never blocks after a timeout.
	replies := make(chan advice, 1)
	prompt := BuildPrompt(s)
	go func() {
		text, err := a.advisor.Advise(ctx, prompt)
		replies <- advice{text: text, err: err}
	}()

	var reply advice
	select {
	case reply = <-replies:
	case <-ctx.Done():
		return Decision{}, fmt.Errorf("%w: %w", ErrAdvisoryUnavailable, ctx.Err())
	}
	if reply.err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrAdvisoryUnavailable, reply.err)
	}

	action, reason, err := ParseAdvice(reply.text)
	if err != nil {
		return Decision{}, err
	}
	if action == Double && !s.CanDouble() {
		return Decision{}, fmt.Errorf("%w: advised DOUBLE but doubling is not allowed", ErrAdvisoryUnavailable)
	}
	return Decision{Action: action, Reason: reason, Source: SourceAdvisor}, nil
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
