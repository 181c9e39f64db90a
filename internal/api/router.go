package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pong-arena/internal/chat"
	"pong-arena/internal/game"
)

// GameInterface is the slice of the game loop the API uses. game.Loop
// implements it; tests use a mock so no loop goroutine is needed.
type GameInterface interface {
	// Snapshot returns the latest committed state (never nil)
	Snapshot() *game.Snapshot
	// Submit queues a command; false means the queue is full
	Submit(cmd game.Command) bool
	Leaderboard() *game.Leaderboard
	Seats() *game.Seats
	Stats() game.LoopStats
}

// FrameSource renders the court as PNG.
type FrameSource interface {
	WritePNG(w io.Writer) error
}

// RouterConfig contains everything needed to build the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Game: mockGame,
//	    Auth: api.NewAuthManager(authCfg),
//	    Chat: chat.NewHub(config.DefaultChat()),
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Game is the game loop (required)
	Game GameInterface

	// Auth handles accounts and tokens (required)
	Auth *AuthManager

	// Chat is the chat hub (required)
	Chat *chat.Hub

	// Frames serves /api/frame.png; the route returns 404 when nil
	Frames FrameSource

	// GameSocket and ChatSocket serve the websocket routes when set
	GameSocket *GameHub
	ChatSocket *ChatSockets

	// RateLimiter is an optional pre-configured limiter. If nil one is
	// created from RateLimitConfig, or DefaultRateLimitConfig.
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to localhost on any port
	CORSOrigins []string

	// DisableLogging turns off the request logger (benchmarks, tests)
	DisableLogging bool
}

type routerHandlers struct {
	game   GameInterface
	auth   *AuthManager
	chat   *chat.Hub
	frames FrameSource
	socket *GameHub
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter opens no listeners and starts no workers other than the rate
// limiter's cleanup goroutine, so it is safe to use with httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes) // browser client calls /api/login/
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		game:   cfg.Game,
		auth:   cfg.Auth,
		chat:   cfg.Chat,
		frames: cfg.Frames,
		socket: cfg.GameSocket,
	}

	r.Route("/api", func(r chi.Router) {
		// Game state
		r.Get("/state", h.handleGetState)
		r.Get("/score", h.handleGetScore)
		r.Get("/stats", h.handleGetStats)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/frame.png", h.handleGetFrame)

		// Commands
		r.With(cfg.Auth.OptionalUser).Post("/command", h.handleCommand)
		r.Post("/score/reset", h.handleScoreReset)

		// Accounts
		r.Post("/register", cfg.Auth.handleRegister)
		r.Post("/login", cfg.Auth.handleLogin)
		r.Post("/verify-token", cfg.Auth.handleVerifyToken)
		r.Post("/refresh-token", cfg.Auth.handleRefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireUser)
			r.Get("/users", h.handleGetUsers)
			r.Post("/seat", h.handleClaimSeat)
			r.Delete("/seat", h.handleReleaseSeat)
			r.Get("/chat/room/{a}/{b}", h.handleChatHistory)
		})

		if cfg.GameSocket != nil {
			r.With(cfg.Auth.OptionalUser).Get("/ws", cfg.GameSocket.HandleWebSocket)
		}
		if cfg.ChatSocket != nil {
			r.Get("/ws/chat/{room}", cfg.ChatSocket.HandleWebSocket)
		}
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}
