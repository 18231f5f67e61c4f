package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hushousing/internal/alerts"
)

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub pushes every notification change to connected browsers.
type Hub struct {
	channel *alerts.Channel
	logger  *zap.Logger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

func NewHub(channel *alerts.Channel, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{channel: channel, logger: logger, clients: make(map[*websocket.Conn]bool)}
}

// Run forwards channel updates until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	sub := h.channel.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case n := <-sub.C:
			h.broadcast(wsEvent{Type: "notification", Data: n})
		}
	}
}

func (h *Hub) broadcast(evt wsEvent) {
	payload, _ := json.Marshal(evt)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

// register adds c and sends it the current notification.
func (h *Hub) register(c *websocket.Conn) {
	payload, _ := json.Marshal(wsEvent{Type: "notification", Data: h.channel.Snapshot()})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	_ = c.WriteMessage(websocket.TextMessage, payload)
}

func (h *Hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

// Clients reports how many sockets are attached.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NotificationsWS - websocket streaming the notification line
func (h *Hub) NotificationsWS(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.register(ws)

	// Read loop (discard client messages; protocol is server push only)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.unregister(ws)
			_ = ws.Close()
			break
		}
	}
	return nil
}
