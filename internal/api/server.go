package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/seamline/seamline-agent/internal/editor"
	"github.com/seamline/seamline-agent/internal/store"
	"github.com/seamline/seamline-agent/internal/stream"
)

// ServerConfig carries the dependencies the HTTP surface needs.
type ServerConfig struct {
	Port       int
	Session    *editor.Session
	Repository store.Repository
	Assets     *stream.AssetServer
	Logger     *slog.Logger
	StartTime  time.Time
	DeviceID   string
	Version    string
}

// Server is the local HTTP endpoint the browser UI talks to. It binds
// to loopback only; the agent is not meant to be reachable off-host.
type Server struct {
	cfg    ServerConfig
	server *http.Server
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Asset streaming holds response bodies open for as long
			// as the client keeps reading, so no write timeout.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks serving requests until Shutdown is called or the
// listener fails.
func (s *Server) Start() error {
	s.cfg.Logger.Info("http server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cfg.Logger.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.server.Addr
}
