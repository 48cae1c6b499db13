package audio

import (
	"log"
	"path/filepath"

	"pong/internal/config"
	"pong/internal/game"
)

// Sink plays decoded clips. The Mixer implements it for the stream,
// the desktop client with ebiten audio players.
type Sink interface {
	Play(c *Clip)
}

// Bank holds the three effect clips. A nil clip means the file was missing
// or undecodable and that effect stays silent.
type Bank struct {
	Paddle *Clip
	Wall   *Clip
	Score  *Clip
}

// LoadBank loads paddle, wall and score effects from cfg.SoundsDir.
// Failures are logged and leave the clip nil; they never abort startup.
func LoadBank(cfg config.AudioConfig) Bank {
	if !cfg.Enabled {
		log.Println("🔇 Sound effects disabled")
		return Bank{}
	}

	load := func(file string) *Clip {
		if file == "" {
			return nil
		}
		path := filepath.Join(cfg.SoundsDir, file)
		clip, err := LoadClip(path, cfg.SampleRate)
		if err != nil {
			log.Printf("⚠️ Sound %s unavailable: %v", file, err)
			return nil
		}
		log.Printf("🔊 Loaded %s (%d frames)", path, clip.Frames())
		return clip
	}

	return Bank{
		Paddle: load(cfg.PaddleSound),
		Wall:   load(cfg.WallSound),
		Score:  load(cfg.ScoreSound),
	}
}

// Sounds binds the bank to sink. Missing clips map to nil so the engine skips them.
func (b Bank) Sounds(sink Sink) game.Sounds {
	return game.Sounds{
		Paddle: b.bind(b.Paddle, sink),
		Wall:   b.bind(b.Wall, sink),
		Score:  b.bind(b.Score, sink),
	}
}

// Loaded returns how many of the three effects are available.
func (b Bank) Loaded() int {
	n := 0
	for _, c := range []*Clip{b.Paddle, b.Wall, b.Score} {
		if c != nil {
			n++
		}
	}
	return n
}

func (b Bank) bind(c *Clip, sink Sink) game.Sound {
	if c == nil || sink == nil {
		return nil
	}
	return game.SoundFunc(func() { sink.Play(c) })
}
