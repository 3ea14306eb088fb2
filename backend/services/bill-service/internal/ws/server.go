package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/service"
)

const sendBuffer = 8

// RuleSource yields the rule sent to a subscriber on connect.
type RuleSource interface {
	GetRule(ctx context.Context) service.RuleLookup
}

// Server upgrades HTTP connections to config stream subscriptions.
type Server struct {
	hub          *Hub
	rules        RuleSource
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server. An empty origins list or "*" accepts any origin.
func NewServer(hub *Hub, rules RuleSource, writeTimeout time.Duration, origins []string, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		rules:        rules,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

// HandleWS is HTTP handler for GET /api/config/stream.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	snapshot, err := encode(TypeRuleSnapshot, s.rules.GetRule(r.Context()).Rule)
	if err != nil {
		s.logger.Error("failed to encode rule snapshot", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := newClient(uuid.NewString(), conn, sendBuffer, s.writeTimeout, 2*s.hub.pingInterval, s.logger, func(c *Client) {
		s.hub.Remove(c)
		cancel()
		s.logger.Info("stream subscriber disconnected", zap.String("client_id", c.ID()))
	})
	client.Send(snapshot)
	s.hub.Add(client)

	go client.Start(ctx)
	s.logger.Info("stream subscriber connected", zap.String("client_id", client.ID()), zap.String("remote_addr", r.RemoteAddr))
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}
}
