package audio

import (
	"log"
	"os"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/vorbis"
)

// MusicPlayer streams an OGG Vorbis track with on-demand decoding and loops it.
// If the file fails to load the player outputs silence and the stream
// continues with sound effects only.
type MusicPlayer struct {
	mu sync.Mutex

	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
	format    beep.Format

	volume  float64
	enabled bool
	loaded  bool

	filePath         string
	targetSampleRate int

	// Pre-allocated to avoid per-frame allocations
	beepBuffer [][2]float64
}

// NewMusicPlayer opens filePath for streaming at sampleRate.
// samplesPerFrame sizes the decode buffer (sampleRate / fps).
func NewMusicPlayer(filePath string, volume float64, sampleRate, samplesPerFrame int) *MusicPlayer {
	mp := &MusicPlayer{
		filePath:         filePath,
		volume:           clampVolume(volume),
		enabled:          true,
		targetSampleRate: sampleRate,
		beepBuffer:       make([][2]float64, samplesPerFrame),
	}

	if err := mp.load(); err != nil {
		log.Printf("⚠️ Background music disabled: %v", err)
	}
	return mp
}

func (mp *MusicPlayer) load() error {
	file, err := os.Open(mp.filePath)
	if err != nil {
		return err
	}

	// Sets up streaming, not a full decode
	streamer, format, err := vorbis.Decode(file)
	if err != nil {
		file.Close()
		return err
	}

	mp.streamer = streamer
	mp.format = format
	mp.loaded = true

	log.Printf("✅ Background music loaded: %s (%d Hz, %d ch)", mp.filePath, format.SampleRate, format.NumChannels)

	if int(format.SampleRate) != mp.targetSampleRate {
		log.Printf("   Resampling from %d Hz to %d Hz", format.SampleRate, mp.targetSampleRate)
		mp.resampled = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(mp.targetSampleRate), streamer)
	} else {
		mp.resampled = streamer
	}
	return nil
}

// ReadSamples fills buffer with interleaved stereo int16 PCM, looping at the
// end of the track. Outputs silence when disabled or not loaded.
func (mp *MusicPlayer) ReadSamples(buffer []int16) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.loaded || !mp.enabled || mp.resampled == nil {
		for i := range buffer {
			buffer[i] = 0
		}
		return len(buffer)
	}

	numStereoSamples := len(buffer) / 2
	if numStereoSamples > len(mp.beepBuffer) {
		numStereoSamples = len(mp.beepBuffer)
	}

	work := mp.beepBuffer[:numStereoSamples]
	n, ok := mp.resampled.Stream(work)

	if !ok || n < numStereoSamples {
		if err := mp.streamer.Seek(0); err != nil {
			log.Printf("⚠️ Music loop seek failed: %v", err)
		}
		if n < numStereoSamples {
			m, _ := mp.resampled.Stream(work[n:])
			for i := n + m; i < numStereoSamples; i++ {
				work[i] = [2]float64{}
			}
		}
	}

	vol := mp.volume
	for i := 0; i < numStereoSamples; i++ {
		buffer[i*2] = floatToInt16(work[i][0] * vol)
		buffer[i*2+1] = floatToInt16(work[i][1] * vol)
	}
	for i := numStereoSamples * 2; i < len(buffer); i++ {
		buffer[i] = 0
	}

	return len(buffer)
}

// SetVolume adjusts the music volume (0.0 to 1.0).
func (mp *MusicPlayer) SetVolume(v float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.volume = clampVolume(v)
}

// SetEnabled toggles playback without closing the decoder.
func (mp *MusicPlayer) SetEnabled(e bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.enabled = e
}

// IsLoaded returns true if music was successfully loaded.
func (mp *MusicPlayer) IsLoaded() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.loaded
}

// Close releases the decoder.
func (mp *MusicPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.loaded = false
	if mp.streamer != nil {
		return mp.streamer.Close()
	}
	return nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
