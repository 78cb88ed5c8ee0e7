// Package statusfeed streams controller snapshots over a websocket.
package statusfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/syncutil"
)

const writeTimeout = 5 * time.Second

type client struct {
	conn *websocket.Conn
	mu   syncutil.Mutex
}

func (c *client) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub keeps the latest snapshot and fans snapshots out to websocket clients.
// Observe never blocks, so it can be called from the scheduler goroutine.
type Hub struct {
	mu      syncutil.RWMutex
	clients map[*client]bool
	latest  []byte

	updates chan []byte
	dropped uint64
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // status page is read-only
	},
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		updates: make(chan []byte, 64),
	}
}

// Observe is a controller.Observer.
func (h *Hub) Observe(s controller.Snapshot) {
	msg, err := json.Marshal(s)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode snapshot")
		return
	}

	h.mu.Lock()
	h.latest = msg
	h.mu.Unlock()

	select {
	case h.updates <- msg:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		log.Warn().Msg("Status feed backlog full, snapshot not broadcast")
	}
}

// Run broadcasts queued snapshots until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.updates:
			h.broadcast(msg)
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			log.Debug().Err(err).Str("remote", c.conn.RemoteAddr().String()).Msg("Dropping websocket client")
			h.remove(c)
		}
	}
}

// Latest returns the last snapshot as JSON, or nil before the first one.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Dropped counts snapshots that were not broadcast because the backlog was full.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]bool)
	h.mu.Unlock()
	for c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}

// ServeWS upgrades the request and streams snapshots, starting with the
// latest one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	c := &client{conn: conn}
	h.add(c)
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Websocket client connected")

	if latest := h.Latest(); latest != nil {
		if err := c.send(latest); err != nil {
			h.remove(c)
			return
		}
	}

	// Keep connection alive; the read loop also answers pings.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}
