package audio

import (
	"encoding/binary"
	"sync"

	"pong/internal/config"
)

// MaxActiveSounds caps how many effects overlap; the oldest is dropped first.
const MaxActiveSounds = 8

// Mixer handles audio mixing for the stream: queued effects on top of the
// optional background music, emitted one video frame at a time.
type Mixer struct {
	mu              sync.Mutex
	sampleRate      int
	channels        int
	samplesPerFrame int
	volume          float64

	activeSounds []*activeSound
	music        *MusicPlayer

	// Reused between frames
	mixBuffer   []int32
	musicBuffer []int16
}

type activeSound struct {
	clip     *Clip
	position int
}

// NewMixer creates a mixer producing one PCM frame per video frame at fps.
func NewMixer(cfg config.AudioConfig, fps int) *Mixer {
	if fps <= 0 {
		fps = config.DefaultScreen().FPS
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = config.DefaultAudio().SampleRate
	}
	// Clips are always decoded to interleaved stereo
	cfg.Channels = 2

	m := &Mixer{
		sampleRate:      cfg.SampleRate,
		channels:        cfg.Channels,
		samplesPerFrame: cfg.SampleRate / fps,
		volume:          cfg.Volume,
	}
	m.mixBuffer = make([]int32, m.samplesPerFrame*m.channels)
	m.musicBuffer = make([]int16, m.samplesPerFrame*m.channels)
	return m
}

// SetMusic attaches a background track. nil removes it.
func (m *Mixer) SetMusic(mp *MusicPlayer) {
	m.mu.Lock()
	m.music = mp
	m.mu.Unlock()
}

// Play queues a clip to start on the next frame. Implements Sink.
func (m *Mixer) Play(c *Clip) {
	if c == nil || len(c.Samples) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.activeSounds = append(m.activeSounds, &activeSound{clip: c})
	if len(m.activeSounds) > MaxActiveSounds {
		m.activeSounds = m.activeSounds[1:]
	}
}

// ActiveSounds returns the number of effects still playing.
func (m *Mixer) ActiveSounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activeSounds)
}

// FrameSize returns the byte length of one GenerateFrame result.
func (m *Mixer) FrameSize() int {
	return m.samplesPerFrame * m.channels * 2
}

// SamplesPerFrame returns the stereo frames mixed per video frame.
func (m *Mixer) SamplesPerFrame() int {
	return m.samplesPerFrame
}

// SampleRate returns the output sample rate in Hz.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// Channels returns the number of interleaved output channels.
func (m *Mixer) Channels() int {
	return m.channels
}

// GenerateFrame mixes one frame of audio as s16le PCM.
// Music goes in first, effects on top, then soft limiting at ±30000.
func (m *Mixer) GenerateFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.mixBuffer {
		m.mixBuffer[i] = 0
	}

	if m.music != nil && m.music.IsLoaded() {
		m.music.ReadSamples(m.musicBuffer)
		for i, s := range m.musicBuffer {
			m.mixBuffer[i] += int32(s)
		}
	}

	alive := m.activeSounds[:0]
	for _, s := range m.activeSounds {
		data := s.clip.Samples
		remaining := len(data) - s.position
		if remaining <= 0 {
			continue
		}

		toRead := len(m.mixBuffer)
		if toRead > remaining {
			toRead = remaining
		}
		for i := 0; i < toRead; i++ {
			m.mixBuffer[i] += int32(float64(data[s.position+i]) * m.volume)
		}

		s.position += toRead
		if s.position < len(data) {
			alive = append(alive, s)
		}
	}
	for i := len(alive); i < len(m.activeSounds); i++ {
		m.activeSounds[i] = nil
	}
	m.activeSounds = alive

	output := make([]byte, m.FrameSize())
	for i, sample := range m.mixBuffer {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(softLimit(sample)))
	}
	return output
}
