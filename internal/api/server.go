package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scalpmaker/internal/config"
)

// Server runs the HTTP/WebSocket control surface of spec §6.
type Server struct {
	cfg      config.DashboardConfig
	provider SnapshotProvider
	fullCfg  config.Config
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new API server for one engine instance. metrics may
// be nil, in which case /metrics is left unmounted.
func NewServer(
	cfg config.DashboardConfig,
	provider SnapshotProvider,
	eng EngineController,
	fullCfg config.Config,
	metrics http.Handler,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, eng, fullCfg, hub, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/api/start", handlers.HandleStart)
	mux.HandleFunc("/api/pause", handlers.HandlePause)
	mux.HandleFunc("/api/resume", handlers.HandleResume)
	mux.HandleFunc("/api/stop", handlers.HandleStop)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		fullCfg:  fullCfg,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the API server, its WebSocket hub, and the engine event
// consumer that feeds it.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeEvents()

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// consumeEvents reads events from the engine and broadcasts them to every
// connected WebSocket client.
func (s *Server) consumeEvents() {
	for evt := range s.provider.Events() {
		switch evt.Type {
		case "fill":
			if evt.Fill == nil {
				continue
			}
			s.hub.BroadcastFill(NewFillEventView(*evt.Fill))
		case "snapshot":
			s.hub.BroadcastSnapshot(BuildSnapshot(s.provider, s.fullCfg))
		}
	}
}
