package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MartinDM/data-app/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// ConnectionGauge counts connected stream clients.
type ConnectionGauge interface {
	Inc()
	Dec()
}

// StreamHub pushes the derived view to websocket clients after every engine
// change. Slow clients skip intermediate views and a view older than one
// already queued is never sent; only the latest matters.
type StreamHub struct {
	logger   *slog.Logger
	engine   *view.Engine
	gauge    ConnectionGauge
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

type streamClient struct {
	conn *websocket.Conn
	send chan viewResponse
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	latest uint64
	queued bool
}

func (c *streamClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewStreamHub builds a hub. Origins are checked against allowedOrigins; an
// empty list or "*" accepts any origin.
func NewStreamHub(logger *slog.Logger, engine *view.Engine, gauge ConnectionGauge, allowedOrigins []string) *StreamHub {
	h := &StreamHub{
		logger:  logger.With("component", "stream"),
		engine:  engine,
		gauge:   gauge,
		clients: make(map[*streamClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// ServeHTTP upgrades the request and streams views until the client goes away.
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{
		conn: conn,
		send: make(chan viewResponse, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	unsubscribe := h.engine.Subscribe(func(v view.View) {
		c.push(toViewResponse(v))
	})
	c.push(toViewResponse(h.engine.Derive()))

	go c.writePump(h.logger)
	c.readPump()

	unsubscribe()
	h.unregister(c)
}

// Close disconnects every client and refuses new ones.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
}

// Len returns the number of connected clients.
func (h *StreamHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StreamHub) register(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.gauge != nil {
		h.gauge.Inc()
	}
	return true
}

func (h *StreamHub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if h.gauge != nil {
		h.gauge.Dec()
	}
}

// push queues v, dropping the oldest queued view when the buffer is full.
// Views not newer than the last queued one are ignored, so a notification
// that lost a race with a later mutation cannot overwrite it.
func (c *streamClient) push(v viewResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queued && v.Version <= c.latest {
		return
	}
	c.latest, c.queued = v.Version, true

	for {
		select {
		case <-c.done:
			return
		case c.send <- v:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// readPump discards client messages and returns once the connection fails
// or the client is closed.
func (c *streamClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case v := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				logger.Debug("stream write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
