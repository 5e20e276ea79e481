package transport

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// SSEHub streams readings as Server-Sent Events. It is an http.Handler and is
// mounted on the main router.
type SSEHub struct {
	encoder encoding.Encoder
	clients map[chan []byte]bool
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewSSEHub creates a hub. Binary encodings are sent base64 encoded.
func NewSSEHub(encoder encoding.Encoder, logger *zap.Logger) *SSEHub {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSEHub{
		encoder: encoder,
		clients: make(map[chan []byte]bool),
		logger:  logger,
	}
}

func (s *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientChan := make(chan []byte, 100)
	s.addClient(clientChan)
	defer s.removeClient(clientChan)

	s.logger.Info("sse client connected", zap.Int("clients", s.GetClientCount()))

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-clientChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reading\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *SSEHub) addClient(ch chan []byte) {
	s.mu.Lock()
	s.clients[ch] = true
	s.mu.Unlock()
}

func (s *SSEHub) removeClient(ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[ch]; exists {
		delete(s.clients, ch)
		close(ch)
		s.logger.Info("sse client disconnected", zap.Int("clients", len(s.clients)))
	}
}

// Broadcast sends a snapshot to all connected clients
func (s *SSEHub) Broadcast(snap models.Snapshot) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if s.encoder.ContentType() != "application/json" {
		data = []byte(base64.StdEncoding.EncodeToString(data))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.clients {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// BroadcastFromChannel reads snapshots and broadcasts them
func (s *SSEHub) BroadcastFromChannel(ctx context.Context, snaps <-chan models.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if err := s.Broadcast(snap); err != nil {
				s.logger.Warn("sse broadcast failed", zap.Error(err))
			}
		}
	}
}

// GetClientCount returns connected client count
func (s *SSEHub) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *SSEHub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]bool)
	return nil
}
