package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
)

// Service bundles the socket bridge and the HTTP state endpoint.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a gateway relaying ch and serving state from provider.
func NewService(config Config, ch broadcast.Channel, provider StateProvider) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, ch)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(provider),
	}
}

// Start runs the bridge until ctx is done.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting draft gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("draft gateway service stopped")
}

// RegisterRoutes registers the WebSocket and state routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("draft gateway routes registered")
}

// Stats returns connection counts.
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
