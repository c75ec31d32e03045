package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
)

func startHub(t *testing.T, opts ...Option) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(log.New(io.Discard), opts...)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHealthz(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK 0", string(body))
}

func TestLateJoinerGetsLastSnapshot(t *testing.T) {
	hub, srv := startHub(t)

	engine := game.NewEngine(randutil.New(1), nil, game.WithSessionID("feed-test"))
	require.NoError(t, hub.Publish(engine.Snapshot(), "startup"))

	conn := dial(t, srv)
	frame := readFrame(t, conn)
	assert.Equal(t, "snapshot", frame.Type)
	assert.Equal(t, "startup", frame.Event)
	assert.Equal(t, uint64(1), frame.Sequence)
	require.NotNil(t, frame.Snapshot)
	assert.Equal(t, "feed-test", frame.Snapshot.SessionID)
	assert.Equal(t, game.PhaseModeSelect, frame.Snapshot.Phase)
}

func TestFollowerStreamsEngineEvents(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	bus := game.NewEventBus()
	engine := game.NewEngine(randutil.New(3), nil, game.WithEventBus(bus))
	bus.Subscribe(hub.NewFollower(engine.Snapshot))

	require.NoError(t, engine.SelectSeatCount(1))

	var last Frame
	for last.Event != string(game.EventTypePhaseChange) || last.Snapshot.Phase != game.PhaseBetting {
		last = readFrame(t, conn)
	}
	assert.Equal(t, "Player 1", last.Snapshot.Seats[0].Name)

	require.NoError(t, engine.PlaceBet(100))
	sawConcealed := false
	for {
		frame := readFrame(t, conn)
		for _, card := range frame.Snapshot.Dealer.Cards {
			if card.Concealed {
				sawConcealed = true
				assert.Zero(t, card.Card)
			}
		}
		if frame.Snapshot.Phase == game.PhasePlaying || frame.Snapshot.Phase == game.PhaseSettlement {
			break
		}
	}
	assert.True(t, sawConcealed, "the hole card goes out concealed")
}

func TestHeartbeatPings(t *testing.T) {
	mockClock := quartz.NewMock(t)
	hub, srv := startHub(t, WithClock(mockClock), WithHeartbeat(5*time.Second))
	require.NoError(t, hub.Publish(game.Snapshot{SessionID: "ping"}, ""))

	conn := dial(t, srv)
	// The first frame is written after the heartbeat ticker exists.
	readFrame(t, conn)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(5 * time.Second).MustWait(ctx)

	select {
	case <-pinged:
	case <-ctx.Done():
		t.Fatal("no ping after heartbeat interval")
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub, srv := startHub(t)
	dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Clients())
	require.NoError(t, hub.Publish(game.Snapshot{}, "after close"))
}

func TestFrameJSON(t *testing.T) {
	snap := game.Snapshot{SessionID: "abc", Phase: game.PhaseDealerTurn}
	b, err := json.Marshal(Frame{Type: "snapshot", Sequence: 3, Snapshot: &snap})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"phase":"dealer_turn"`)
	assert.Contains(t, string(b), `"seq":3`)
}
