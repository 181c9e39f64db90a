package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pong-arena/internal/chat"
	"pong-arena/internal/config"
)

// Server is the HTTP API with the game and chat websockets.
type Server struct {
	router      *chi.Mux
	gameHub     *GameHub
	chatSockets *ChatSockets
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// ServerDeps are the collaborators the server exposes over HTTP.
type ServerDeps struct {
	Game   GameInterface
	Frames FrameSource
	Auth   *AuthManager
	Chat   *chat.Hub
}

// NewServer builds the server. Background workers do not start until
// Start is called, so tests can use Router() directly.
func NewServer(deps ServerDeps, cfg config.ServerConfig) *Server {
	s := &Server{
		gameHub:     NewGameHub(deps.Game, cfg),
		chatSockets: NewChatSockets(deps.Chat, deps.Auth, cfg),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Game:        deps.Game,
		Auth:        deps.Auth,
		Chat:        deps.Chat,
		Frames:      deps.Frames,
		GameSocket:  s.gameHub,
		ChatSocket:  s.chatSockets,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// GameHub returns the game websocket hub, for wiring loop listeners.
func (s *Server) GameHub() *GameHub {
	return s.gameHub
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the websocket hub and serves HTTP until Shutdown. It returns
// nil after a clean shutdown.
func (s *Server) Start() error {
	s.gameHub.Start()

	log.Printf("🌐 API server starting on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, disconnects websocket clients and
// stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.gameHub.Stop()
	s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
