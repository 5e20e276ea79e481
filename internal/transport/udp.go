package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// UDPServer pushes readings to display devices that registered by sending a
// datagram. "subscribe" and "unsubscribe" are explicit; any other datagram
// also registers the sender.
type UDPServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	conn    *net.UDPConn
	clients map[string]*net.UDPAddr
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewUDPServer creates a new UDP server
func NewUDPServer(host string, port int, encoder encoding.Encoder, logger *zap.Logger) *UDPServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UDPServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[string]*net.UDPAddr),
		logger:  logger,
	}
}

// Start listens until ctx is cancelled.
func (s *UDPServer) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("failed to resolve address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("udp server listening", zap.String("address", s.GetAddress()))

	go s.readLoop(ctx, conn)

	<-ctx.Done()
	return s.Shutdown()
}

// readLoop listens for client registration packets
func (s *UDPServer) readLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		s.handleMessage(string(buf[:n]), addr)
	}
}

func (s *UDPServer) handleMessage(msg string, addr *net.UDPAddr) {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg {
	case "subscribe":
		s.clients[key] = addr
		s.logger.Info("udp client subscribed", zap.String("client", key), zap.Int("clients", len(s.clients)))
	case "unsubscribe":
		delete(s.clients, key)
		s.logger.Info("udp client unsubscribed", zap.String("client", key), zap.Int("clients", len(s.clients)))
	default:
		if _, exists := s.clients[key]; !exists {
			s.clients[key] = addr
			s.logger.Info("udp client registered", zap.String("client", key), zap.Int("clients", len(s.clients)))
		}
	}
}

// Broadcast sends a snapshot to all registered clients
func (s *UDPServer) Broadcast(snap models.Snapshot) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(snap)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return nil
	}
	for _, addr := range s.clients {
		if _, err := s.conn.WriteToUDP(data, addr); err != nil {
			s.logger.Debug("udp send failed", zap.Stringer("client", addr), zap.Error(err))
		}
	}
	return nil
}

// BroadcastFromChannel reads snapshots and broadcasts them
func (s *UDPServer) BroadcastFromChannel(ctx context.Context, snaps <-chan models.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if err := s.Broadcast(snap); err != nil {
				s.logger.Warn("udp broadcast failed", zap.Error(err))
			}
		}
	}
}

// GetClientCount returns registered client count
func (s *UDPServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes the UDP connection
func (s *UDPServer) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// GetAddress returns the server address
func (s *UDPServer) GetAddress() string {
	return fmt.Sprintf("udp://%s:%d", s.host, s.port)
}
