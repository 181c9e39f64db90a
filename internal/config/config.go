// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for physics, loop and server settings.
//
// Every section has a DefaultX() and an XFromEnv() that applies overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PHYSICS
// =============================================================================

// PhysicsConfig holds the simulation constants.
type PhysicsConfig struct {
	BaseSpeed    float64 // Ball speed before the multiplier
	SpeedFactor  float64 // Multiplier applied on serve and paddle hits
	MinDirection float64 // Per-axis floor for ball direction, keeps the ball from going flat
	PaddleStep   float64 // Paddle travel per step, in world units
}

// DefaultPhysics returns the default physics configuration.
func DefaultPhysics() PhysicsConfig {
	return PhysicsConfig{
		BaseSpeed:    4,
		SpeedFactor:  1.5, // ball travels 6 units per step
		MinDirection: 0.6,
		PaddleStep:   12,
	}
}

// BallSpeed is the magnitude applied on serve and paddle redirection.
func (p PhysicsConfig) BallSpeed() float64 {
	return p.BaseSpeed * p.SpeedFactor
}

// PhysicsFromEnv returns physics configuration with environment overrides.
func PhysicsFromEnv() PhysicsConfig {
	cfg := DefaultPhysics()

	if v := getEnvFloat("PONG_BASE_SPEED", 0); v > 0 {
		cfg.BaseSpeed = v
	}
	if v := getEnvFloat("PONG_SPEED_FACTOR", 0); v > 0 {
		cfg.SpeedFactor = v
	}
	if v := getEnvFloat("PONG_MIN_DIRECTION", -1); v >= 0 && v <= 1 {
		cfg.MinDirection = v
	}
	if v := getEnvFloat("PONG_PADDLE_STEP", 0); v > 0 {
		cfg.PaddleStep = v
	}

	return cfg
}

// =============================================================================
// GAME LOOP
// =============================================================================

// LoopConfig controls the host loop and the frame gate.
type LoopConfig struct {
	TargetRate int   // Simulation steps per second
	HostRate   int   // Host frames per second (the display callback)
	QueueSize  int   // Command queue capacity
	Seed       int64 // RNG seed for serves, 0 = time based
}

// DefaultLoop returns the default loop configuration.
func DefaultLoop() LoopConfig {
	return LoopConfig{
		TargetRate: 60,
		HostRate:   120, // high refresh display; the gate drops every other frame
		QueueSize:  1024,
	}
}

// LoopFromEnv returns loop configuration with environment overrides.
func LoopFromEnv() LoopConfig {
	cfg := DefaultLoop()

	if v := getEnvInt("PONG_TARGET_RATE", 0); v > 0 {
		cfg.TargetRate = v
	}
	if v := getEnvInt("PONG_HOST_RATE", 0); v > 0 {
		cfg.HostRate = v
	}
	if v := getEnvInt("PONG_QUEUE_SIZE", 0); v > 0 {
		cfg.QueueSize = v
	}
	if v := os.Getenv("PONG_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}

	return cfg
}

// =============================================================================
// INPUT
// =============================================================================

// InputConfig maps key identifiers to paddle and serve actions.
type InputConfig struct {
	Serve string
	Up1   string
	Down1 string
	Up2   string
	Down2 string
}

// DefaultInput returns the browser key bindings.
func DefaultInput() InputConfig {
	return InputConfig{
		Serve: " ",
		Up1:   "w",
		Down1: "s",
		Up2:   "ArrowUp",
		Down2: "ArrowDown",
	}
}

// =============================================================================
// COURT
// =============================================================================

// CourtConfig locates the court layout.
type CourtConfig struct {
	LayoutPath string // TOML layout; empty = built-in court
}

// CourtFromEnv returns court configuration with environment overrides.
func CourtFromEnv() CourtConfig {
	return CourtConfig{LayoutPath: os.Getenv("PONG_COURT_LAYOUT")}
}

// =============================================================================
// SERVER
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int
	CORSOrigins       []string
	BroadcastInterval time.Duration
	DebugPort         int
	FrameWidth        int
	FrameHeight       int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:              3000,
		CORSOrigins:       []string{"http://localhost:*", "http://127.0.0.1:*"},
		BroadcastInterval: 50 * time.Millisecond,
		DebugPort:         6060,
		FrameWidth:        1280,
		FrameHeight:       720,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if ms := getEnvInt("BROADCAST_INTERVAL_MS", 0); ms > 0 {
		cfg.BroadcastInterval = time.Duration(ms) * time.Millisecond
	}
	if p := getEnvInt("DEBUG_PORT", 0); p > 0 {
		cfg.DebugPort = p
	}

	return cfg
}

// =============================================================================
// AUTH
// =============================================================================

// AuthConfig holds account and token settings.
type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// DefaultAuth returns the default auth configuration. Secret is empty and
// must come from the environment in production.
func DefaultAuth() AuthConfig {
	return AuthConfig{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		BcryptCost: 10,
	}
}

// AuthFromEnv returns auth configuration with environment overrides.
func AuthFromEnv() AuthConfig {
	cfg := DefaultAuth()

	cfg.Secret = os.Getenv("AUTH_SECRET")
	if m := getEnvInt("ACCESS_TOKEN_MINUTES", 0); m > 0 {
		cfg.AccessTTL = time.Duration(m) * time.Minute
	}
	if h := getEnvInt("REFRESH_TOKEN_HOURS", 0); h > 0 {
		cfg.RefreshTTL = time.Duration(h) * time.Hour
	}
	if c := getEnvInt("BCRYPT_COST", 0); c > 0 {
		cfg.BcryptCost = c
	}

	return cfg
}

// =============================================================================
// CHAT
// =============================================================================

// ChatConfig holds chat room settings.
type ChatConfig struct {
	HistorySize      int
	MaxMessageLen    int
	MaxPerWindow     int // per sender
	RoomMaxPerWindow int // per room, both members together
	Window           time.Duration
	Cooldown         time.Duration
}

// DefaultChat returns the default chat configuration.
func DefaultChat() ChatConfig {
	return ChatConfig{
		HistorySize:      100,
		MaxMessageLen:    500,
		MaxPerWindow:     5,
		RoomMaxPerWindow: 8,
		Window:           5 * time.Second,
		Cooldown:         300 * time.Millisecond,
	}
}

// ChatFromEnv returns chat configuration with environment overrides.
func ChatFromEnv() ChatConfig {
	cfg := DefaultChat()

	if v := getEnvInt("CHAT_HISTORY_SIZE", 0); v > 0 {
		cfg.HistorySize = v
	}
	if v := getEnvInt("CHAT_MAX_PER_WINDOW", 0); v > 0 {
		cfg.MaxPerWindow = v
	}
	if v := getEnvInt("CHAT_ROOM_MAX_PER_WINDOW", 0); v > 0 {
		cfg.RoomMaxPerWindow = v
	}

	return cfg
}

// =============================================================================
// EVENT LOG
// =============================================================================

// EventLogConfig controls the JSONL game event log.
type EventLogConfig struct {
	Path      string // empty = in-memory only
	RateLimit int    // events per second
	Burst     int
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		RateLimit: 500,
		Burst:     100,
	}
}

// EventLogFromEnv returns event log configuration with environment overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()
	cfg.Path = os.Getenv("EVENT_LOG_PATH")
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Physics  PhysicsConfig
	Loop     LoopConfig
	Input    InputConfig
	Court    CourtConfig
	Server   ServerConfig
	Auth     AuthConfig
	Chat     ChatConfig
	EventLog EventLogConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Physics:  PhysicsFromEnv(),
		Loop:     LoopFromEnv(),
		Input:    DefaultInput(),
		Court:    CourtFromEnv(),
		Server:   ServerFromEnv(),
		Auth:     AuthFromEnv(),
		Chat:     ChatFromEnv(),
		EventLog: EventLogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
