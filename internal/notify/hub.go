// Package notify is the best-effort push channel for processing events.
//
// Listeners connect over WebSocket and receive JSON events. Delivery is not
// guaranteed: events published while nobody listens, or while the hub is
// saturated, are dropped. The direct response of a processing request is
// always the authoritative completion signal.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"media-filter/internal/logging"
	"media-filter/internal/metrics"

	"github.com/gorilla/websocket"
)

// EventProcessedVideo is emitted when a video transcode completes.
const EventProcessedVideo = "processedVideo"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
	broadcastQueue = 64
)

var log = logging.For("notify")

// Event is one push notification.
type Event struct {
	Type     string    `json:"type"`
	VideoURL string    `json:"videoUrl,omitempty"`
	JobID    string    `json:"jobId,omitempty"`
	Time     time.Time `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected listeners.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	origins    map[string]bool
	done       chan struct{}
	doneOnce   sync.Once
}

// NewHub creates a hub. Run must be started before listeners connect.
// Browsers may connect from the serving origin or from any of
// allowedOrigins (scheme://host[:port]).
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		origins:    make(map[string]bool),
		done:       make(chan struct{}),
	}
	for _, o := range allowedOrigins {
		if o = normalizeOrigin(o); o != "" {
			h.origins[o] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts non-browser clients (no Origin header), same-host
// pages and explicitly allowed origins.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		log.Debug("rejecting WebSocket origin %q", origin)
		return false
	}
	if strings.EqualFold(u.Host, r.Host) || h.origins[normalizeOrigin(origin)] {
		return true
	}
	log.Debug("rejecting cross-origin WebSocket from %q", origin)
	return false
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

// Run serves register, unregister and broadcast requests until ctx ends,
// then disconnects every listener.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mutex.Unlock()
			metrics.PushClients.Set(float64(n))
			log.Debug("Listener connected. Total: %d", n)

		case c := <-h.unregister:
			h.remove(c)

		case message := <-h.broadcast:
			h.mutex.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					slow = append(slow, c)
				}
			}
			h.mutex.RUnlock()
			for _, c := range slow {
				log.Warn("Dropping slow listener")
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mutex.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mutex.Unlock()

	if ok {
		metrics.PushClients.Set(float64(n))
		log.Debug("Listener disconnected. Total: %d", n)
	}
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mutex.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mutex.Unlock()
	metrics.PushClients.Set(0)
}

// Publish queues e for every listener. It never blocks and reports whether
// the event was queued.
func (h *Hub) Publish(e Event) bool {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	if h.ClientCount() == 0 {
		metrics.PushEventsTotal.WithLabelValues("dropped").Inc()
		log.Debug("No listeners for %s event", e.Type)
		return false
	}

	payload, err := json.Marshal(e)
	if err != nil {
		log.Error("Failed to encode %s event: %v", e.Type, err)
		return false
	}

	select {
	case h.broadcast <- payload:
		metrics.PushEventsTotal.WithLabelValues("published").Inc()
		return true
	default:
		metrics.PushEventsTotal.WithLabelValues("dropped").Inc()
		log.Warn("Push queue full, dropping %s event", e.Type)
		return false
	}
}

// ProcessedVideo publishes a processedVideo event.
func (h *Hub) ProcessedVideo(jobID, videoURL string) {
	h.Publish(Event{Type: EventProcessedVideo, VideoURL: videoURL, JobID: jobID})
}

// ClientCount returns the number of connected listeners.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the listener connected until it
// goes away or the hub stops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Listener read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("Listener write error: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
