// Package server provides the HTTP server implementation for the centy
// daemon API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/internal/server/events/adapters"
	"github.com/centy-io/centy-daemon/internal/server/sse"
	ws "github.com/centy-io/centy-daemon/internal/server/websocket"
	"github.com/centy-io/centy-daemon/pkg/docs"
	"github.com/centy-io/centy-daemon/pkg/issues"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	reconciler     *reconcile.Service
	issues         *issues.Service
	docs           *docs.Service
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// New creates a new server instance with the given configuration. The
// reconcile service owns the per-project locks; issue and doc services
// share them so every write into a project serializes.
func New(reconciler *reconcile.Service, cfg Config, logger *zerolog.Logger) *Server {
	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		reconciler:     reconciler,
		issues:         issues.NewService(reconciler.Locks()),
		docs:           docs.NewService(reconciler.Locks()),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Loopback-only daemon; origin checks happen in CORS config
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Start starts background services (broker, WebSocket hub, SSE
// broadcaster).
func (s *Server) Start() {
	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Shutdown gracefully shuts down background services.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()
	return nil
}
