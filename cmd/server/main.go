package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pong-arena/internal/api"
	"pong-arena/internal/chat"
	"pong-arena/internal/config"
	"pong-arena/internal/game"
	"pong-arena/internal/render"
	"pong-arena/internal/scene"
)

func main() {
	// Load .env from the parent directory, then the current one
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🏓 ================================")
	log.Println("🏓  PONG ARENA")
	log.Println("🏓 ================================")

	appConfig := config.Load()
	physics := appConfig.Physics
	log.Printf("🏓 Config: %d steps/s on a %d Hz host, ball speed %.1f, paddle step %.1f, direction floor %.2f",
		appConfig.Loop.TargetRate, appConfig.Loop.HostRate, physics.BallSpeed(), physics.PaddleStep, physics.MinDirection)

	court := loadCourt(appConfig.Court)

	// Event log
	events := game.NewEventLog(appConfig.EventLog)
	if err := events.Start(appConfig.EventLog.Path); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
		events = nil
	} else if appConfig.EventLog.Path != "" {
		log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
	}

	// Debug server
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if _, err := api.StartDebugServer(api.DefaultObservabilityConfig(appConfig.Server.DebugPort)); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Game loop owns the engine from here on
	engine := game.NewEngine(physics, appConfig.Loop.Seed)
	loop := game.NewLoop(engine, appConfig.Loop, appConfig.Input, events)
	loop.SetObserver(api.StepMetrics{})
	loop.Load(court)

	renderer := render.NewCourtRenderer(appConfig.Server.FrameWidth, appConfig.Server.FrameHeight)
	loop.AddPresenter(renderer)
	loop.OnScore(renderer.SetScore)

	chatHub := chat.NewHub(appConfig.Chat)
	auth := api.NewAuthManager(appConfig.Auth)

	server := api.NewServer(api.ServerDeps{
		Game:   loop,
		Frames: renderer,
		Auth:   auth,
		Chat:   chatHub,
	}, appConfig.Server)
	loop.OnScore(server.GameHub().BroadcastScore)
	loop.OnGoal(server.GameHub().BroadcastGoal)

	loop.Start()

	go func() {
		log.Printf("🌐 API server on http://localhost:%d", appConfig.Server.Port)
		log.Printf("🎮 Game socket: ws://localhost:%d/api/ws", appConfig.Server.Port)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ %v", err)
	}
	loop.Stop()
	chatHub.Close()
	if events != nil {
		events.Stop()
	}
	log.Println("👋 Goodbye!")
}

// loadCourt reads the configured layout, falling back to the built-in court.
func loadCourt(cfg config.CourtConfig) *scene.Court {
	if cfg.LayoutPath == "" {
		log.Println("🏟️ Using built-in court")
		return scene.Default()
	}

	court, err := scene.LoadFile(cfg.LayoutPath)
	if err != nil {
		log.Printf("⚠️ Court layout unusable, using built-in court: %v", err)
		return scene.Default()
	}
	log.Printf("🏟️ Court %q loaded from %s (%d nodes)", court.Name, cfg.LayoutPath, court.Len())
	return court
}
