package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pong/internal/api"
	"pong/internal/audio"
	"pong/internal/config"
	"pong/internal/game"
	"pong/internal/ipc"
	"pong/internal/render"
	"pong/internal/streaming"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🏓 ================================")
	log.Println("🏓  PONG - HEADLESS SERVER")
	log.Println("🏓 ================================")

	cfg := config.Load()
	screen := cfg.Screen

	log.Printf("🎮 Config: %dx%d @ %d TPS, first to %d, replay %v",
		screen.Width, screen.Height, screen.FPS, cfg.Game.WinningScore, cfg.Game.AllowedWinningScores)

	engine := game.NewEngine(game.EngineConfig{
		Width:  float64(screen.Width),
		Height: float64(screen.Height),
		Rules:  cfg.Game,
	})

	// Event log
	eventLog := game.NewEventLog()
	if err := eventLog.Start(cfg.Server.EventLogPath); err != nil {
		log.Printf("⚠️ Event log file disabled: %v", err)
		eventLog.Start("")
	} else if cfg.Server.EventLogPath != "" {
		log.Printf("📝 Event log: %s", cfg.Server.EventLogPath)
	}

	runner := game.NewRunner(engine, game.RunnerConfig{
		TickRate: screen.FPS,
		Rules:    cfg.Game,
		EventLog: eventLog,
	})

	// Audio: effects go to the stream mixer, music is optional
	mixer := audio.NewMixer(cfg.Audio, screen.FPS)
	var music *audio.MusicPlayer
	if cfg.Audio.MusicPath != "" {
		music = audio.NewMusicPlayer(cfg.Audio.MusicPath, cfg.Audio.MusicVolume, mixer.SampleRate(), mixer.SamplesPerFrame())
		mixer.SetMusic(music)
	}
	bank := audio.LoadBank(cfg.Audio)
	runner.SetSounds(bank.Sounds(mixer))
	log.Printf("🔊 %d/3 sound effects loaded", bank.Loaded())

	renderer, err := render.NewRenderer(screen.Width, screen.Height, cfg.Stream.FontPath)
	if err != nil {
		log.Fatalf("❌ Renderer init failed: %v", err)
	}

	var streamer api.StreamerInterface
	var streamManager *streaming.StreamManager
	if cfg.Stream.Enabled() {
		streamManager = streaming.NewStreamManager(runner, renderer, mixer, streaming.NewStreamConfig(screen, cfg.Stream))
		streamer = streamManager
		log.Printf("📡 RTMP URL: %s", cfg.Stream.RTMPURL)
		log.Printf("🔑 Stream Key: %s...", cfg.Stream.StreamKey[:min(6, len(cfg.Stream.StreamKey))])
	} else {
		streamer = streaming.NewNoOpStreamer()
		log.Println("⚠️ STREAM_KEY not set, streaming disabled")
	}

	// Snapshot feed for a standalone streamer process
	var publisher *ipc.Publisher
	if cfg.Server.IPCEnabled() {
		publisher = ipc.NewPublisher(cfg.Server.IPCSocket)
		publisher.SetConfig(ipc.ConfigMessage{
			Width:   screen.Width,
			Height:  screen.Height,
			FPS:     screen.FPS,
			Bitrate: cfg.Stream.Bitrate,
		})
		if err := publisher.Start(); err != nil {
			log.Printf("⚠️ IPC publisher disabled: %v", err)
			publisher = nil
		}
	}

	metrics := api.NewGameMetrics(eventLog)
	runner.OnTick(func(d time.Duration, snap game.GameSnapshot) {
		metrics.Observe(d, snap)
		if publisher != nil {
			publisher.PublishSnapshot(snap)
		}
	})

	var debugServer *http.Server
	if cfg.Server.DebugServer {
		debugServer = api.StartDebugServer(api.DefaultObservabilityConfig())
	}

	server := api.NewServer(api.ServerConfig{
		Game:        runner,
		Streamer:    streamer,
		Renderer:    renderer,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	runner.Start()
	log.Println("✅ Game loop started")

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	if streamManager != nil {
		if err := streamManager.Start(); err != nil {
			log.Printf("⚠️ Stream not started: %v (retry with POST /api/stream/start)", err)
		}
	}

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	streamer.Stop()
	runner.Stop()
	if publisher != nil {
		publisher.Stop()
	}
	eventLog.Stop()
	if music != nil {
		music.Close()
	}
	log.Println("👋 Goodbye!")
}
