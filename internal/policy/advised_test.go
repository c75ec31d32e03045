package policy

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func staticAdvisor(text string, err error) Advisor {
	return AdvisorFunc(func(context.Context, Prompt) (string, error) {
		return text, err
	})
}

func TestParseAdvice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		action  Action
		reason  string
		wantErr bool
	}{
		{name: "canonical", text: "ACTION: HIT - REASON: dealer shows strength", action: Hit, reason: "dealer shows strength"},
		{name: "lowercase", text: "action: double - reason: eleven vs six", action: Double, reason: "eleven vs six"},
		{name: "surrounding prose", text: "Sure!\nACTION:STAND\nREASON: 19 is plenty\n", action: Stand, reason: "19 is plenty"},
		{name: "missing reason", text: "ACTION: STAND", action: Stand, reason: "Playing it safe"},
		{name: "no action", text: "I would probably hit here", wantErr: true},
		{name: "split is not an action", text: "ACTION: SPLIT - REASON: pairs", wantErr: true},
		{name: "empty", text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, reason, err := ParseAdvice(tt.text)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAdvisoryUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	s := situation(Aggressive, "5h 6d", "10s", 1000, 100)
	p := BuildPrompt(s)
	assert.Equal(t, Aggressive, p.Style)
	assert.InDelta(t, 0.9, p.Temperature, 1e-9)
	assert.Contains(t, p.Text, "aggressive blackjack player")
	assert.Contains(t, p.Text, s.Describe())
	assert.Contains(t, p.Text, "ACTION: [HIT/STAND/DOUBLE]")

	s.Style = Conservative
	p = BuildPrompt(s)
	assert.InDelta(t, 0.3, p.Temperature, 1e-9)
	assert.Contains(t, p.Text, "safe blackjack player")
}

func TestAdvisedUsesAdvice(t *testing.T) {
	t.Parallel()

	var got Prompt
	advisor := AdvisorFunc(func(_ context.Context, p Prompt) (string, error) {
		got = p
		return "ACTION: STAND - REASON: trust the advisor", nil
	})

	d := NewAdvised(advisor, quietLogger()).Decide(context.Background(), situation(Aggressive, "10h 2d", "10s", 1000, 100))
	assert.Equal(t, Decision{Action: Stand, Reason: "trust the advisor", Source: SourceAdvisor}, d)
	assert.Equal(t, Aggressive, got.Style)
}

func TestAdvisedFallsBack(t *testing.T) {
	t.Parallel()

	s := situation(Aggressive, "5h 6d", "10s", 1000, 100)
	want := Evaluate(s)

	tests := []struct {
		name    string
		advisor Advisor
		s       Situation
	}{
		{name: "nil advisor", advisor: nil, s: s},
		{name: "transport error", advisor: staticAdvisor("", errors.New("connection refused")), s: s},
		{name: "malformed response", advisor: staticAdvisor("no idea", nil), s: s},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewAdvised(tt.advisor, quietLogger()).Decide(context.Background(), tt.s)
			assert.Equal(t, want, d)
		})
	}
}

func TestAdvisedRejectsIllegalDouble(t *testing.T) {
	t.Parallel()

	s := situation(Conservative, "2h 3d 6c", "5s", 1000, 50)
	d := NewAdvised(staticAdvisor("ACTION: DOUBLE - REASON: go big", nil), quietLogger()).Decide(context.Background(), s)
	assert.Equal(t, Hit, d.Action)
	assert.Equal(t, SourceRules, d.Source)
}

func TestAdvisedTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mockClock := quartz.NewMock(t)
	called := make(chan struct{})
	advisor := AdvisorFunc(func(ctx context.Context, _ Prompt) (string, error) {
		close(called)
		<-ctx.Done()
		return "", ctx.Err()
	})

	decider := NewAdvised(advisor, quietLogger(), WithClock(mockClock), WithTimeout(3*time.Second))
	s := situation(Conservative, "10h 6d", "10s", 1000, 50)

	result := make(chan Decision, 1)
	go func() {
		result <- decider.Decide(ctx, s)
	}()

	// The deadline timer is registered before the advisor is called.
	<-called
	mockClock.Advance(3 * time.Second).MustWait(ctx)

	select {
	case d := <-result:
		assert.Equal(t, Stand, d.Action)
		assert.Equal(t, SourceRules, d.Source)
	case <-ctx.Done():
		t.Fatal("decision did not fall back after the advisory deadline")
	}
}

func TestAdvisedParentCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	advisor := AdvisorFunc(func(ctx context.Context, _ Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	d := NewAdvised(advisor, quietLogger()).Decide(ctx, situation(Aggressive, "10h 2d", "10s", 1000, 100))
	assert.Equal(t, Hit, d.Action)
	assert.Equal(t, SourceRules, d.Source)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "HIT", 80, "HIT"},
		{"ascii", "abcdef", 3, "abc..."},
		{"cut inside a rune", "ab♠cd", 3, "ab..."},
		{"cut after a rune", "ab♠cd", 5, "ab♠..."},
		{"cut inside the first rune", "♠♠", 1, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestUnusableAdviceQuotesWholeRunes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 79) + "♠♠ nothing useful"
	_, _, err := ParseAdvice(text)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAdvisoryUnavailable)
	assert.Contains(t, err.Error(), `"`+strings.Repeat("a", 79)+`..."`)
	assert.NotContains(t, err.Error(), `\x`)
}
