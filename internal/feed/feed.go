// Package feed serves table snapshots to spectators over WebSocket.
//
// The hub never touches an engine. Whoever owns the engine publishes
// snapshots into it (usually through a Follower subscribed to the engine's
// event bus); the hub keeps the latest frame for late joiners and fans each
// new frame out to every connected client.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/game"
)

const (
	// DefaultHeartbeat is the interval between pings to each client
	DefaultHeartbeat = 15 * time.Second

	// Time allowed to write a frame to a client
	writeWait = 10 * time.Second

	// Frames queued per client before it is considered too slow and dropped
	sendBuffer = 64
)

// Frame is one message on the feed
type Frame struct {
	Type     string         `json:"type"`
	Event    string         `json:"event,omitempty"`
	Sequence uint64         `json:"seq"`
	At       time.Time      `json:"at"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
}

// Option configures a Hub
type Option func(*Hub)

// WithClock sets the clock driving heartbeats and frame timestamps
func WithClock(clock quartz.Clock) Option {
	return func(h *Hub) { h.clock = clock }
}

// WithHeartbeat sets the ping interval
func WithHeartbeat(d time.Duration) Option {
	return func(h *Hub) { h.heartbeat = d }
}

// Hub tracks spectator connections and the latest frame
type Hub struct {
	upgrader  websocket.Upgrader
	clock     quartz.Clock
	heartbeat time.Duration
	logger    *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	seq     uint64
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub creates a hub with no clients
func NewHub(logger *log.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clock:     quartz.NewReal(),
		heartbeat: DefaultHeartbeat,
		logger:    logger.WithPrefix("feed"),
		clients:   make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the feed's HTTP routes: /feed and /healthz
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", h.handleFeed)
	mux.HandleFunc("/healthz", h.handleHealth)
	return mux
}

// Publish broadcasts a snapshot. event names what caused it and may be empty.
func (h *Hub) Publish(snap game.Snapshot, event string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	h.seq++
	frame, err := json.Marshal(Frame{
		Type:     "snapshot",
		Event:    event,
		Sequence: h.seq,
		At:       h.clock.Now().UTC(),
		Snapshot: &snap,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	h.last = frame

	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("Client too slow, dropping", "client", c.id)
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// Clients returns the number of connected spectators
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops accepting frames
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK %d", h.Clients())
}

func (h *Hub) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString()[:8],
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Spectator connected", "client", c.id, "total", total)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards anything spectators send; it exists to notice closes.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Spectator read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := h.clock.NewTicker(h.heartbeat, "feed", "heartbeat")
	defer func() {
		ticker.Stop()
		h.drop(c)
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("Failed to write frame", "client", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Info("Spectator disconnected", "client", c.id, "total", total)
	}
}

// Follower republishes a snapshot to the hub after every engine event. It
// runs on the engine's goroutine, which is the only place a snapshot may be
// taken.
type Follower struct {
	hub      *Hub
	snapshot func() game.Snapshot
	logger   *log.Logger
}

// NewFollower creates a subscriber publishing snapshot() on every event
func (h *Hub) NewFollower(snapshot func() game.Snapshot) *Follower {
	return &Follower{hub: h, snapshot: snapshot, logger: h.logger}
}

// OnEvent implements game.EventSubscriber
func (f *Follower) OnEvent(event game.GameEvent) {
	if err := f.hub.Publish(f.snapshot(), event.EventType().String()); err != nil {
		f.logger.Error("Failed to publish snapshot", "error", err)
	}
}
