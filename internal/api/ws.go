package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
)

const maxReviewerConns = 10

// Hub manages reviewer WebSocket connections. Every pending notification
// is broadcast to all connected reviewers.
type Hub struct {
	mutex       sync.Mutex
	connections map[*websocket.Conn]bool
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a reviewer connection.
func (h *Hub) AddConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.connections) >= maxReviewerConns {
		h.logger.Warnf("Max reviewer connections reached, dropping new connection")
		conn.Close()
		return
	}
	h.connections[conn] = true
	h.logger.Infof("Added reviewer connection (total: %d)", len(h.connections))
}

// RemoveConnection unregisters a reviewer connection.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		h.logger.Infof("Removed reviewer connection (remaining: %d)", len(h.connections))
	}
}

// PushPending broadcasts a pending notification to every reviewer.
func (h *Hub) PushPending(n models.Notification) {
	message, err := json.Marshal(map[string]interface{}{
		"type":         "pending_notification",
		"notification": n,
	})
	if err != nil {
		h.logger.Errorf("Failed to marshal notification %s: %v", n.NotificationID, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to push to reviewer: %v", err)
			delete(h.connections, conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
