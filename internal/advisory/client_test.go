package advisory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/policy"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}, testLogger())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAdvise(t *testing.T) {
	t.Parallel()

	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ACTION: HIT - REASON: low total"}]}}]}`)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL + "/v1beta/", Model: "test-model", APIKey: "secret"}, testLogger())
	require.NoError(t, err)

	text, err := c.Advise(context.Background(), policy.Prompt{Style: policy.Aggressive, Text: "what now?", Temperature: 0.9, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "ACTION: HIT - REASON: low total", text)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "what now?", got.Contents[0].Parts[0].Text)
	assert.InDelta(t, 0.9, got.GenerationConfig.Temperature, 1e-9)
	assert.Equal(t, 100, got.GenerationConfig.MaxOutputTokens)
}

func TestAdviseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantMsg: "500"},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantMsg: "no candidates"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantMsg: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, err := New(Config{Endpoint: srv.URL, APIKey: "k"}, testLogger())
			require.NoError(t, err)

			_, err = c.Advise(context.Background(), policy.Prompt{Text: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAdviseHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{Endpoint: srv.URL, APIKey: "k"}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Advise(ctx, policy.Prompt{Text: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientAsAdvisorFallsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, APIKey: "k"}, testLogger())
	require.NoError(t, err)

	decider := policy.NewAdvised(c, testLogger())
	d := decider.Decide(context.Background(), policy.Situation{
		Name:  "Player 2",
		Hand:  nil,
		Chips: 100,
		Bet:   100,
		Style: policy.Aggressive,
	})
	assert.Equal(t, policy.SourceRules, d.Source)
	assert.Equal(t, policy.Hit, d.Action)
}
