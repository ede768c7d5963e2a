// Package api exposes an editor session over HTTP.
package api

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/session"
)

// Previewer hands out copies of the last composited frame.
type Previewer interface {
	NewFrame() *image.RGBA
	ReleaseFrame(img *image.RGBA)
	Snapshot(dst *image.RGBA) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Listen    string
	Session   *session.EditorSession
	Preview   Previewer
	Quality   config.Quality
	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Listen,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
