package notify

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/models"
)

// StatusChangeEvent is the payload broadcast to every connected client on a
// channel status transition.
type StatusChangeEvent struct {
	ChannelID string               `json:"channelId"`
	Status    models.ChannelStatus `json:"status"`
	TxHash    string               `json:"txHash,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans status-change events out to every connected client. It inverts
// the teacher toolkit's WebSocketRPCClient (src/chainadapter/rpc/websocket.go),
// which dials out to a remote RPC endpoint and multiplexes responses back to
// callers by request id; this hub instead accepts inbound browser
// connections and has no request/response correlation, only broadcast,
// since clients never send anything the gateway needs to answer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// for broadcast until it disconnects. It never reads application messages
// from the client; a background read loop drains and discards frames only
// to notice close/ping control frames, the minimum gorilla/websocket needs
// to detect a dead connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.drain(conn)
}

// drain blocks reading frames until the connection errors or closes, then
// deregisters it. gorilla/websocket requires a read loop to process control
// frames even when the server never expects application messages.
func (h *Hub) drain(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends event to every connected client. A write failure
// deregisters and closes that client; it never blocks waiting on a slow
// reader beyond gorilla's own write deadline handling.
func (h *Hub) Broadcast(event StatusChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("marshal status change event failed", zap.Error(err))
		}
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}
	}
}
