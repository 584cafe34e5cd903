package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/scythe504/skribblr-sync/internal/config"
	"github.com/scythe504/skribblr-sync/internal/game"
)

type Server struct {
	manager       *game.Manager
	allowedOrigin string
	log           zerolog.Logger
}

func New(manager *game.Manager, allowedOrigin string, logger zerolog.Logger) *Server {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &Server{
		manager:       manager,
		allowedOrigin: allowedOrigin,
		log:           logger.With().Str("component", "server").Logger(),
	}
}

// NewHTTPServer wires the routes into an http.Server listening on cfg's port.
func (s *Server) NewHTTPServer(cfg config.Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// CheckOrigin accepts websocket upgrades from the allowed origin.
func CheckOrigin(allowedOrigin string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowedOrigin == "" || allowedOrigin == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowedOrigin
	}
}
