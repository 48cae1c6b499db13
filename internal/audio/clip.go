// Package audio decodes the optional sound effects and mixes them into
// fixed-size PCM frames for the stream encoder.
package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// resampleQuality is the beep.Resample quality used for effects and music.
const resampleQuality = 4

// Clip is a fully decoded sound effect: interleaved stereo int16 PCM at the
// mixer sample rate.
type Clip struct {
	Name    string
	Samples []int16
}

// LoadClip decodes the WAV file at path and resamples it to sampleRate.
func LoadClip(path string, sampleRate int) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	streamer, format, err := wav.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if int(format.SampleRate) != sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(sampleRate), streamer)
	}

	samples := make([]int16, 0, streamer.Len()*2)
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, floatToInt16(buf[i][0]), floatToInt16(buf[i][1]))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Clip{Name: name, Samples: samples}, nil
}

// Bytes returns the clip as 16-bit little-endian stereo PCM, the layout
// ebiten's audio players and ffmpeg's s16le input expect.
func (c *Clip) Bytes() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Frames returns the number of stereo frames in the clip.
func (c *Clip) Frames() int {
	return len(c.Samples) / 2
}

// floatToInt16 converts a float64 sample (-1.0 to 1.0) to int16.
// Includes soft clipping to prevent harsh distortion.
func floatToInt16(sample float64) int16 {
	return softLimit(int32(sample * 32767.0))
}

// softLimit compresses anything beyond ±30000 to leave headroom for mixing,
// then hard clamps to the int16 range.
func softLimit(sample int32) int16 {
	if sample > 30000 {
		sample = 30000 + (sample-30000)/4
	} else if sample < -30000 {
		sample = -30000 + (sample+30000)/4
	}

	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}
	return int16(sample)
}
