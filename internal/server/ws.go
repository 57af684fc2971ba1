package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/retarget"
)

// writeWait bounds a single WebSocket write.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// client is one WebSocket subscriber. send holds at most one message: a
// client that falls behind only ever gets the newest frame.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) offer(msg []byte) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

// RotationsHandler streams every published frame to WebSocket clients as
// JSON. It implements app.Publisher.
type RotationsHandler struct {
	clients map[*client]bool
	mu      sync.RWMutex
}

// NewRotationsHandler creates a handler with no clients.
func NewRotationsHandler() *RotationsHandler {
	return &RotationsHandler{clients: make(map[*client]bool)}
}

// ServeHTTP upgrades the request and streams frames until the client
// disconnects.
func (h *RotationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "err", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, 1)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Keep connection alive by reading messages
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write error", "err", err)
				return
			}
		}
	}
}

// Publish sends f to every connected client without blocking.
func (h *RotationsHandler) Publish(f *retarget.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}
	msg, err := json.Marshal(f)
	if err != nil {
		log.Warn("frame not broadcast", "seq", f.Seq, "err", err)
		return
	}
	for c := range h.clients {
		c.offer(msg)
	}
}

// Clients returns the number of connected clients.
func (h *RotationsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
