package desktop

import (
	"log"
	"sync"

	"pong/internal/audio"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Speaker plays effect clips through ebiten's audio context.
// It implements audio.Sink.
type Speaker struct {
	ctx    *ebaudio.Context
	volume float64

	mu      sync.Mutex
	players map[*audio.Clip]*ebaudio.Player
}

// NewSpeaker creates the process-wide audio context. Clips must already be
// resampled to sampleRate.
func NewSpeaker(sampleRate int, volume float64) *Speaker {
	return &Speaker{
		ctx:     ebaudio.NewContext(sampleRate),
		volume:  volume,
		players: make(map[*audio.Clip]*ebaudio.Player),
	}
}

// Play restarts c from the beginning. Replaying a clip that is still
// sounding cuts it off.
func (s *Speaker) Play(c *audio.Clip) {
	s.mu.Lock()
	p, ok := s.players[c]
	if !ok {
		p = s.ctx.NewPlayerFromBytes(c.Bytes())
		p.SetVolume(s.volume)
		s.players[c] = p
	}
	s.mu.Unlock()

	if err := p.SetPosition(0); err != nil {
		log.Printf("⚠️ Rewind %s failed: %v", c.Name, err)
		return
	}
	p.Play()
}
