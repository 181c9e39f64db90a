package api_test

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pong-arena/internal/api"
	"pong-arena/internal/chat"
	"pong-arena/internal/config"
	"pong-arena/internal/game"
)

// MockGame implements api.GameInterface for testing
type MockGame struct {
	mu       sync.Mutex
	snap     *game.Snapshot
	commands []game.Command
	full     bool

	board *game.Leaderboard
	seats *game.Seats
}

func NewMockGame() *MockGame {
	return &MockGame{
		snap: &game.Snapshot{
			Sequence: 7,
			Step:     42,
			Loaded:   true,
			Score:    game.Score{Left: 2, Right: 1},
		},
		board: game.NewLeaderboard(),
		seats: &game.Seats{},
	}
}

func (m *MockGame) Snapshot() *game.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *MockGame) SetSnapshot(s *game.Snapshot) {
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
}

func (m *MockGame) Submit(cmd game.Command) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return false
	}
	m.commands = append(m.commands, cmd)
	return true
}

func (m *MockGame) Commands() []game.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.Command(nil), m.commands...)
}

// WaitFor polls until a command of kind arrives or the timeout passes.
func (m *MockGame) WaitFor(kind game.CommandKind, timeout time.Duration) (game.Command, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, c := range m.Commands() {
			if c.Kind == kind {
				return c, true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return game.Command{}, false
}

func (m *MockGame) Leaderboard() *game.Leaderboard { return m.board }
func (m *MockGame) Seats() *game.Seats             { return m.seats }

func (m *MockGame) Stats() game.LoopStats {
	return game.LoopStats{Frames: 84, Steps: 42, Running: true}
}

func testAuth() *api.AuthManager {
	return api.NewAuthManager(config.AuthConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

func testRouterConfig(g *MockGame) api.RouterConfig {
	return api.RouterConfig{
		Game: g,
		Auth: testAuth(),
		Chat: chat.NewHub(config.DefaultChat()),
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1000, // High limit for tests
			Burst:             1000,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
	}
}
