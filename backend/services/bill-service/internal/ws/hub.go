package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/models"
)

// Hub tracks config stream subscribers and fans rule updates out to them.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds subscriber hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers a subscriber.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Remove unregisters a subscriber. Removing an unknown client is a no-op.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RuleUpdated broadcasts the stored rule. Subscribers that cannot keep up are dropped.
func (h *Hub) RuleUpdated(rule models.BillingRule) {
	msg, err := encode(TypeRuleUpdated, rule)
	if err != nil {
		h.logger.Error("failed to encode rule update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.Send(msg) {
			h.logger.Warn("dropping slow stream subscriber", zap.String("client_id", c.ID()))
			delete(h.clients, c)
			c.close()
		}
	}
}

// Run pings subscribers until ctx is cancelled, then disconnects all of them.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.mu.RLock()
			for c := range h.clients {
				if err := c.Ping(); err != nil {
					h.logger.Debug("stream ping failed", zap.String("client_id", c.ID()), zap.Error(err))
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
