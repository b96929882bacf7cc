package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
)

const maxWSConnections = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AlertHub fans raised alerts out to connected WebSocket clients.
type AlertHub struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewAlertHub(logger *logging.Logger) *AlertHub {
	return &AlertHub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
	}
}

func (h *AlertHub) addConnection(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.connections) >= maxWSConnections {
		h.logger.Warnf("Max WebSocket connections reached (%d), rejecting client", maxWSConnections)
		return false
	}
	h.connections[conn] = true
	h.logger.Infof("Added WebSocket connection (total: %d)", len(h.connections))
	return true
}

func (h *AlertHub) removeConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		h.logger.Infof("Removed WebSocket connection (remaining: %d)", len(h.connections))
	}
}

// Broadcast sends the alert to every connected client, dropping
// connections whose writes fail.
func (h *AlertHub) Broadcast(alert models.KPIAlert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		h.logger.Errorf("Failed to encode alert %s for broadcast: %v", alert.ID, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Errorf("Failed to send WebSocket message: %v", err)
			conn.Close()
			delete(h.connections, conn)
		}
	}
}

// Close terminates all client connections.
func (h *AlertHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		conn.Close()
		delete(h.connections, conn)
	}
}

// ServeAlerts upgrades the request and keeps the connection registered
// until the client goes away. Inbound frames are discarded.
func (h *AlertHub) ServeAlerts(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	if !h.addConnection(conn) {
		conn.Close()
		return
	}
	defer func() {
		h.removeConnection(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
