package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/rosterd/internal/api"
	"github.com/obsidianstack/rosterd/internal/store"
)

// EventRecords is the event name on every message.
const EventRecords = "records"

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10

	// outboxSize is how many listings may queue for one subscriber before it
	// counts as slow and is dropped.
	outboxSize = 16

	// Clients only send control frames.
	maxInboundBytes = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Any origin; put CORS policy in the reverse proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Listing is the payload of one message.
type Listing struct {
	Records     map[string]string `json:"records"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string  `json:"event"`
	Data  Listing `json:"data"`
}

// Hub fans the record set out to WebSocket subscribers every interval.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool // set by Run on exit; no new subscribers after that
}

// subscriber is one connected client. outbox is never closed; gone is closed
// exactly once when the hub or the connection ends the subscription.
type subscriber struct {
	conn   *websocket.Conn
	outbox chan *websocket.PreparedMessage
	gone   chan struct{}
	once   sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() { close(s.gone) })
}

// New creates a Hub that reads from st and publishes every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		subs:     make(map[*subscriber]struct{}),
	}
}

// Run publishes on every tick until ctx is cancelled, then disconnects all
// subscribers.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case <-t.C:
			h.publish()
		}
	}
}

// ServeHTTP upgrades the request and serves the subscriber until either side
// closes. The current listing is queued before the first tick.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	s := &subscriber{
		conn:   conn,
		outbox: make(chan *websocket.PreparedMessage, outboxSize),
		gone:   make(chan struct{}),
	}
	if pm, err := h.prepare(); err == nil {
		s.outbox <- pm
	} else {
		slog.Error("ws: prepare listing", "err", err)
	}

	if !h.add(s) {
		// Run has already stopped; close 1001 without registering.
		s.drop()
		s.writeLoop()
		return
	}
	defer h.remove(s)

	go s.writeLoop()
	s.readLoop()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// add registers s. It reports false once the hub is closed.
func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	slog.Debug("ws: subscriber connected", "remote", s.conn.RemoteAddr().String(), "subscribers", n)
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.drop()
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		s.drop()
	}
}

// publish queues one prepared listing on every subscriber's outbox. A
// subscriber whose outbox is full is removed.
func (h *Hub) publish() {
	pm, err := h.prepare()
	if err != nil {
		slog.Error("ws: prepare listing", "err", err)
		return
	}

	var slow []*subscriber
	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.outbox <- pm:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		slog.Warn("ws: dropping slow subscriber", "remote", s.conn.RemoteAddr().String())
		h.remove(s)
	}
}

// prepare encodes the current listing once for all subscribers.
func (h *Hub) prepare() (*websocket.PreparedMessage, error) {
	raw, err := json.Marshal(Message{
		Event: EventRecords,
		Data: Listing{
			Records:     api.List(h.store).Records,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding listing: %w", err)
	}
	return websocket.NewPreparedMessage(websocket.TextMessage, raw)
}

// writeLoop owns all writes to the connection.
func (s *subscriber) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.gone:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			s.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case pm := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := s.conn.WritePreparedMessage(pm); err != nil {
				s.drop()
				return
			}

		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.drop()
				return
			}
		}
	}
}

// readLoop handles pongs and notices the peer going away.
func (s *subscriber) readLoop() {
	s.conn.SetReadLimit(maxInboundBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
