// internal/api/events.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/astralforge/stellar-odyssey/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The browser client is served from the same origin; a deployment
		// behind a different origin should tighten this.
		return true
	},
}

// eventClient is one connected browser.
type eventClient struct {
	conn   *websocket.Conn
	send   chan []byte
	closed int32
}

func (c *eventClient) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.conn.Close()
	}
}

func (c *eventClient) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// EventHub fans game events out to connected websocket clients. It
// implements the event publisher contract used by the core engines, so
// wiring it is just passing it at service construction.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*eventClient]struct{}
	log     *logger.Logger
}

// eventEnvelope is the wire shape pushed to browsers.
type eventEnvelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*eventClient]struct{}),
		log:     logger.Get(),
	}
}

// Publish serializes the event and queues it on every connected client.
// Slow clients are dropped rather than blocking gameplay.
func (h *EventHub) Publish(event string, data interface{}) {
	payload, err := json.Marshal(eventEnvelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.log.Warn("failed to serialize event", map[string]interface{}{
			"event": event,
			"error": err.Error(),
		})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			client.close()
		}
	}
}

// ClientCount reports connected clients, for the health endpoint.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and pumps events until the
// client disconnects.
func (h *EventHub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := &eventClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *EventHub) writeLoop(client *eventClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(client)
				return
			}
		}
	}
}

// readLoop drains incoming frames; the stream is push-only, so client
// messages are discarded but the read keeps pong handling alive.
func (h *EventHub) readLoop(client *eventClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) remove(client *eventClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	client.close()
}
