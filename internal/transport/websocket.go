package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

const writeWait = 5 * time.Second

// WebSocketHub pushes every new reading to connected WebSocket clients. It is
// an http.Handler and is mounted on the main router.
type WebSocketHub struct {
	upgrader websocket.Upgrader
	encoder  encoding.Encoder
	clients  map[*websocket.Conn]bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewWebSocketHub creates a hub. Protobuf encoders send binary frames.
func NewWebSocketHub(encoder encoding.Encoder, logger *zap.Logger) *WebSocketHub {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced by the router
			},
		},
		encoder: encoder,
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("remote", r.RemoteAddr), zap.Int("clients", clientCount))

	defer func() {
		h.mu.Lock()
		_, present := h.clients[conn]
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		if present {
			conn.Close()
		}
		h.logger.Info("websocket client disconnected", zap.Int("clients", clientCount))
	}()

	// Clients only listen; reads detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends a snapshot to all connected clients
func (h *WebSocketHub) Broadcast(snap models.Snapshot) error {
	data, err := h.encoder.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	msgType := websocket.TextMessage
	if h.encoder.ContentType() != "application/json" {
		msgType = websocket.BinaryMessage
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(msgType, data); err != nil {
			h.logger.Debug("websocket send failed", zap.Error(err))
			// The read loop in ServeHTTP removes the client.
		}
	}
	return nil
}

// BroadcastFromChannel reads snapshots from a channel and broadcasts them
func (h *WebSocketHub) BroadcastFromChannel(ctx context.Context, snaps <-chan models.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if err := h.Broadcast(snap); err != nil {
				h.logger.Warn("websocket broadcast failed", zap.Error(err))
			}
		}
	}
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	return nil
}
