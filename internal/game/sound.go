package game

// Sound is a one-shot effect. Play must not block the game tick.
type Sound interface {
	Play()
}

// Sounds holds the optional effects triggered by Update.
// A nil entry means the asset could not be loaded and the effect is skipped.
type Sounds struct {
	Paddle Sound
	Wall   Sound
	Score  Sound
}

func play(s Sound) {
	if s != nil {
		s.Play()
	}
}

// SoundFunc adapts a plain function to the Sound interface.
type SoundFunc func()

// Play calls f.
func (f SoundFunc) Play() { f() }

// PlayDeltas triggers the effects whose counters advanced between prev and
// cur. Processes that only see snapshots, like the standalone streamer, use
// it in place of the engine's direct calls.
func PlayDeltas(prev, cur GameSnapshot, s Sounds) {
	if cur.WallBounces > prev.WallBounces {
		play(s.Wall)
	}
	if cur.PaddleHits > prev.PaddleHits {
		play(s.Paddle)
	}
	if cur.Points > prev.Points {
		play(s.Score)
	}
}
