package main

import (
	"log"

	"pong/internal/audio"
	"pong/internal/config"
	"pong/internal/desktop"
	"pong/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	cfg := config.Load()
	screen := cfg.Screen

	engine := game.NewEngine(game.EngineConfig{
		Width:  float64(screen.Width),
		Height: float64(screen.Height),
		Rules:  cfg.Game,
	})

	// Missing effect files leave that sound silent
	bank := audio.LoadBank(cfg.Audio)
	if bank.Loaded() > 0 {
		engine.SetSounds(bank.Sounds(desktop.NewSpeaker(cfg.Audio.SampleRate, cfg.Audio.Volume)))
	}

	surface, err := desktop.NewSurface(cfg.Stream.FontPath)
	if err != nil {
		log.Fatalf("❌ Font init failed: %v", err)
	}

	log.Printf("🏓 First to %d. W/S to move, ESC to quit", engine.WinningScore)
	g := desktop.NewGame(engine, surface, nil)
	if err := desktop.Run(g, "Pong", screen.FPS); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Println("👋 Goodbye!")
}
