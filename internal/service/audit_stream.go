package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/riskgate/internal/models"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AuditHub fans audit entries out to connected websocket clients. The
// feed is a best-effort live tail for admin tooling; slow clients are
// dropped rather than allowed to back-pressure the request path.
type AuditHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewAuditHub creates a new AuditHub
func NewAuditHub() *AuditHub {
	return &AuditHub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Broadcast queues an audit entry for every connected client
func (h *AuditHub) Broadcast(entry *models.AuditLog) {
	payload, err := json.Marshal(entry)
	if err != nil {
		warnf("audit stream: marshal entry: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- payload:
		default:
			// Client is not keeping up; drop it.
			close(send)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ServeWS upgrades the request and streams audit entries until the
// client disconnects
func (h *AuditHub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	send := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go func() {
		for payload := range send {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				break
			}
		}
		h.remove(conn)
	}()

	// Reader loop exists only to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	return nil
}

func (h *AuditHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[conn]; ok {
		close(send)
		delete(h.clients, conn)
	}
	conn.Close()
}
