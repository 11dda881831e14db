package websocket

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrHubClosed is returned when a connection arrives after Close
var ErrHubClosed = errors.New("websocket hub closed")

// Hub tracks the live connections so shutdown can close them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	wg      sync.WaitGroup

	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) add(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.logger.Debug("websocket client registered",
		zap.String("client_id", c.ID),
		zap.Int("clients", len(h.clients)),
	)
	return nil
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.wg.Done()
	h.logger.Debug("websocket client unregistered",
		zap.String("client_id", c.ID),
		zap.Duration("connected", c.ConnectionDuration()),
		zap.Int("clients", len(h.clients)),
	)
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close refuses new connections, closes every client and waits for their
// read loops to finish or ctx to expire.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.logger.Info("closing websocket clients", zap.Int("clients", len(clients)))
	for _, c := range clients {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
