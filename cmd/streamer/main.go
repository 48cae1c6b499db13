// Standalone streamer: renders snapshots received from cmd/server over IPC
// and pushes them to RTMP, keeping encoding off the game server's CPU budget.
//
// USAGE:
//  1. Start the server with IPC_SOCKET set: IPC_SOCKET=/tmp/pong.sock go run ./cmd/server
//  2. Then start this streamer with the same IPC_SOCKET and a STREAM_KEY.
package main

import (
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"pong/internal/audio"
	"pong/internal/config"
	"pong/internal/game"
	"pong/internal/ipc"
	"pong/internal/render"
	"pong/internal/streaming"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	}

	log.Println("🏓 ================================")
	log.Println("🏓  PONG - STREAMER")
	log.Println("🏓 ================================")

	cfg := config.Load()
	if !cfg.Stream.Enabled() {
		log.Fatal("❌ STREAM_KEY not set")
	}

	// Must match the server's value; the server does not publish without it
	if !cfg.Server.IPCEnabled() {
		log.Fatal("❌ IPC_SOCKET not set (use the same value as the game server)")
	}
	subscriber := ipc.NewSubscriber(cfg.Server.IPCSocket)

	// Effects are replayed from counter deltas in the snapshot feed once
	// the mixer exists. Callbacks all run on the subscriber's read goroutine.
	var (
		sounds atomic.Pointer[game.Sounds]
		prev   game.GameSnapshot
		seen   bool
	)
	subscriber.OnSnapshot(func(snap game.GameSnapshot) {
		if s := sounds.Load(); s != nil && seen {
			game.PlayDeltas(prev, snap, *s)
		}
		prev, seen = snap, true
	})
	subscriber.OnConnect(func() { log.Println("✅ Connected to game server") })
	subscriber.OnDisconnect(func() { log.Println("⚠️ Lost game server, waiting to reconnect") })
	subscriber.Start()

	// The server dictates frame size and rate
	screen := cfg.Screen
	if remote, ok := subscriber.WaitForConfig(30 * time.Second); ok {
		screen = config.ScreenConfig{Width: remote.Width, Height: remote.Height, FPS: remote.FPS}
		if remote.Bitrate > 0 {
			cfg.Stream.Bitrate = remote.Bitrate
		}
	} else {
		log.Printf("⚠️ No config from server, using local %dx%d @ %d FPS", screen.Width, screen.Height, screen.FPS)
	}

	mixer := audio.NewMixer(cfg.Audio, screen.FPS)
	var music *audio.MusicPlayer
	if cfg.Audio.MusicPath != "" {
		music = audio.NewMusicPlayer(cfg.Audio.MusicPath, cfg.Audio.MusicVolume, mixer.SampleRate(), mixer.SamplesPerFrame())
		mixer.SetMusic(music)
	}
	bank := audio.LoadBank(cfg.Audio).Sounds(mixer)
	sounds.Store(&bank)

	renderer, err := render.NewRenderer(screen.Width, screen.Height, cfg.Stream.FontPath)
	if err != nil {
		log.Fatalf("❌ Renderer init failed: %v", err)
	}

	streamer := streaming.NewStreamManager(subscriber, renderer, mixer, streaming.NewStreamConfig(screen, cfg.Stream))
	if err := streamer.Start(); err != nil {
		log.Fatalf("❌ Stream start failed: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	streamer.Stop()
	subscriber.Stop()
	if music != nil {
		music.Close()
	}
	log.Println("👋 Goodbye!")
}
