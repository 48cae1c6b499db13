// Package streaming renders game snapshots and pushes them, with the mixed
// effect audio, to an RTMP endpoint through FFmpeg.
package streaming

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"pong/internal/config"
	"pong/internal/game"
	"pong/internal/render"
)

// ErrAlreadyStreaming is returned by Start while a stream is running.
var ErrAlreadyStreaming = errors.New("already streaming")

// SnapshotSource provides the latest game state without blocking the tick.
type SnapshotSource interface {
	GetSnapshot() game.GameSnapshot
}

// AudioSource produces one s16le PCM frame per video frame.
type AudioSource interface {
	GenerateFrame() []byte
	SampleRate() int
	Channels() int
}

// StreamConfig holds encoder and destination settings.
type StreamConfig struct {
	Width     int
	Height    int
	FPS       int
	Bitrate   int // kbps
	RTMPURL   string
	StreamKey string

	FFmpegPath   string // defaults to "ffmpeg" on PATH
	OutputFormat string // defaults to "flv"
	OutputURL    string // overrides RTMPURL/StreamKey when set
}

// NewStreamConfig combines the screen and stream settings.
func NewStreamConfig(screen config.ScreenConfig, stream config.StreamConfig) StreamConfig {
	return StreamConfig{
		Width:     screen.Width,
		Height:    screen.Height,
		FPS:       screen.FPS,
		Bitrate:   stream.Bitrate,
		RTMPURL:   stream.RTMPURL,
		StreamKey: stream.StreamKey,
	}
}

// DoubleBuffer lets the next frame render while the previous one is sent.
type DoubleBuffer struct {
	buffers     [2][]byte
	surfaces    [2]*render.Surface
	activeIndex int
	mu          sync.Mutex
}

// StreamManager handles rendering and FFmpeg streaming.
type StreamManager struct {
	source   SnapshotSource
	renderer *render.Renderer
	audio    AudioSource
	config   StreamConfig

	mu        sync.RWMutex
	streaming bool
	stopChan  chan struct{}
	ffmpeg    *exec.Cmd
	videoPipe io.WriteCloser
	audioPipe io.WriteCloser
	startTime time.Time
	errors    []string

	doubleBuffer    *DoubleBuffer
	frameRingBuffer *FrameRingBuffer
	asyncWriter     *AsyncFrameWriter

	framesRendered atomic.Int64
	framesDropped  atomic.Int64
	frameTimeAccum atomic.Int64 // nanoseconds
	audioFrames    atomic.Int64

	onStreamStart func()
}

// NewStreamManager creates a stream manager. audio may be nil for a silent track.
func NewStreamManager(source SnapshotSource, renderer *render.Renderer, audio AudioSource, cfg StreamConfig) *StreamManager {
	cfg.Width, cfg.Height = renderer.Size()
	if cfg.FPS <= 0 {
		cfg.FPS = config.DefaultScreen().FPS
	}
	if cfg.Bitrate <= 0 {
		cfg.Bitrate = config.DefaultStream().Bitrate
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "flv"
	}

	frameSize := renderer.FrameSize()

	return &StreamManager{
		source:   source,
		renderer: renderer,
		audio:    audio,
		config:   cfg,
		stopChan: make(chan struct{}),
		doubleBuffer: &DoubleBuffer{
			buffers:  [2][]byte{make([]byte, frameSize), make([]byte, frameSize)},
			surfaces: [2]*render.Surface{renderer.NewSurface(), renderer.NewSurface()},
		},
		frameRingBuffer: NewFrameRingBuffer(frameSize),
	}
}

// OnStreamStart registers a callback fired after FFmpeg starts.
func (s *StreamManager) OnStreamStart(callback func()) {
	s.mu.Lock()
	s.onStreamStart = callback
	s.mu.Unlock()
}

func (s *StreamManager) outputURL() string {
	if s.config.OutputURL != "" {
		return s.config.OutputURL
	}
	return s.config.RTMPURL + "/" + s.config.StreamKey
}

func (s *StreamManager) useAudioPipe() bool {
	// ExtraFiles is not supported on Windows
	return s.audio != nil && runtime.GOOS != "windows"
}

// buildArgs returns the FFmpeg command line: raw RGBA on stdin, s16le PCM on
// fd 3 (or a silent source), libx264 + AAC out.
func (s *StreamManager) buildArgs() []string {
	c := s.config
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-r", fmt.Sprintf("%d", c.FPS),
		"-i", "pipe:0",
	}

	if s.useAudioPipe() {
		args = append(args,
			"-f", "s16le",
			"-ar", fmt.Sprintf("%d", s.audio.SampleRate()),
			"-ac", fmt.Sprintf("%d", s.audio.Channels()),
			"-i", "pipe:3",
		)
	} else {
		args = append(args,
			"-f", "lavfi",
			"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		)
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-b:v", fmt.Sprintf("%dk", c.Bitrate),
		"-maxrate", fmt.Sprintf("%dk", c.Bitrate),
		"-bufsize", fmt.Sprintf("%dk", c.Bitrate*2),
		"-pix_fmt", "yuv420p",
		"-g", fmt.Sprintf("%d", c.FPS*2),
		"-keyint_min", fmt.Sprintf("%d", c.FPS),
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-ac", "2",
		"-map", "0:v",
		"-map", "1:a",
		"-f", c.OutputFormat,
		s.outputURL(),
	)
	return args
}

// Start launches FFmpeg and the render, writer and audio loops.
func (s *StreamManager) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming {
		return ErrAlreadyStreaming
	}

	log.Println("🎬 Starting stream...")
	log.Printf("   Resolution: %dx%d @ %d fps", s.config.Width, s.config.Height, s.config.FPS)
	log.Printf("   Bitrate: %dk", s.config.Bitrate)
	if s.config.OutputURL == "" {
		log.Printf("   RTMP URL: %s", s.config.RTMPURL)
	}

	cmd := exec.Command(s.config.FFmpegPath, s.buildArgs()...)
	cmd.Stderr = os.Stderr

	videoPipe, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create video pipe: %w", err)
	}

	var audioReader, audioWriter *os.File
	if s.useAudioPipe() {
		audioReader, audioWriter, err = os.Pipe()
		if err != nil {
			return fmt.Errorf("failed to create audio pipe: %w", err)
		}
		cmd.ExtraFiles = []*os.File{audioReader} // fd 3
		log.Println("   🔊 Sound effects: enabled (piped audio)")
	} else {
		log.Println("   🔇 Sound effects: disabled (silent audio track)")
	}

	if err := cmd.Start(); err != nil {
		if audioReader != nil {
			audioReader.Close()
			audioWriter.Close()
		}
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	if audioReader != nil {
		// The child holds its own copy
		audioReader.Close()
		s.audioPipe = audioWriter
	}

	s.ffmpeg = cmd
	s.videoPipe = videoPipe
	s.streaming = true
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.errors = nil
	s.framesRendered.Store(0)
	s.framesDropped.Store(0)
	s.frameTimeAccum.Store(0)
	s.audioFrames.Store(0)

	s.frameRingBuffer.Reset()
	s.asyncWriter = NewAsyncFrameWriter(s.frameRingBuffer, videoPipe)
	s.asyncWriter.SetBitrate(s.config.Bitrate)
	s.asyncWriter.SetOnConnectionLost(func() {
		s.recordError("connection lost")
		s.Stop()
	})
	s.asyncWriter.Start(s.config.FPS)

	go s.frameLoop(s.stopChan)
	if s.audioPipe != nil {
		go s.audioLoop(s.stopChan, s.audioPipe)
	}

	log.Println("✅ Stream started!")

	if s.onStreamStart != nil {
		go s.onStreamStart()
	}
	return nil
}

// Stop stops streaming and terminates FFmpeg.
func (s *StreamManager) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.streaming {
		return
	}
	log.Println("🛑 Stopping stream...")

	s.streaming = false
	close(s.stopChan)

	// Writer first, before its pipe closes
	if s.asyncWriter != nil {
		s.asyncWriter.Stop()
	}
	if s.videoPipe != nil {
		s.videoPipe.Close()
	}
	if s.audioPipe != nil {
		s.audioPipe.Close()
		s.audioPipe = nil
	}

	if s.ffmpeg != nil && s.ffmpeg.Process != nil {
		pid := s.ffmpeg.Process.Pid
		done := make(chan error, 1)
		go func(cmd *exec.Cmd) { done <- cmd.Wait() }(s.ffmpeg)

		// Closing stdin lets FFmpeg flush and exit on its own
		select {
		case <-done:
			log.Println("✅ FFmpeg process exited")
		case <-time.After(3 * time.Second):
			log.Printf("🔪 Killing FFmpeg process (PID: %d)...", pid)
			killFFmpegProcess(s.ffmpeg, pid)
			<-done
		}
	}

	log.Println("✅ Stream stopped")
}

// IsStreaming returns whether the stream is active.
func (s *StreamManager) IsStreaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// GetStats returns streaming statistics.
func (s *StreamManager) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := time.Duration(0)
	actualFPS := float64(0)
	rendered := s.framesRendered.Load()
	if s.streaming && !s.startTime.IsZero() {
		uptime = time.Since(s.startTime)
		if uptime.Seconds() > 0 {
			actualFPS = float64(rendered) / uptime.Seconds()
		}
	}

	avgFrameMs := float64(0)
	if rendered > 0 {
		avgFrameMs = float64(s.frameTimeAccum.Load()) / float64(rendered) / 1e6
	}

	stats := map[string]interface{}{
		"streaming":      s.streaming,
		"framesRendered": rendered,
		"framesDropped":  s.framesDropped.Load(),
		"audioFrames":    s.audioFrames.Load(),
		"avgFrameMs":     avgFrameMs,
		"uptime":         uptime.String(),
		"actualFps":      fmt.Sprintf("%.1f", actualFPS),
		"resolution":     fmt.Sprintf("%dx%d", s.config.Width, s.config.Height),
		"fps":            s.config.FPS,
		"bitrate":        s.config.Bitrate,
		"errors":         s.errors,
	}
	if s.asyncWriter != nil {
		stats["writer"] = s.asyncWriter.GetStats()
		stats["framesSent"] = s.asyncWriter.GetStats()["framesWritten"]
	} else {
		stats["framesSent"] = uint64(0)
	}
	return stats
}

func (s *StreamManager) recordError(msg string) {
	s.mu.Lock()
	s.errors = append(s.errors, msg)
	if len(s.errors) > 10 {
		s.errors = s.errors[1:]
	}
	s.mu.Unlock()
}

func (s *StreamManager) frameLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(s.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			start := time.Now()
			frame := s.renderNext()
			if !s.frameRingBuffer.TryWrite(frame) {
				s.framesDropped.Add(1)
			}
			s.framesRendered.Add(1)
			s.frameTimeAccum.Add(time.Since(start).Nanoseconds())
		}
	}
}

// renderNext renders the latest snapshot into the back buffer, swaps, and
// returns the front buffer rendered on the previous call.
func (s *StreamManager) renderNext() []byte {
	db := s.doubleBuffer
	db.mu.Lock()
	defer db.mu.Unlock()

	back := 1 - db.activeIndex
	front := db.activeIndex

	surface := db.surfaces[back]
	surface.Draw(s.source.GetSnapshot())
	surface.CopyRGBA(db.buffers[back])

	db.activeIndex = back
	return db.buffers[front]
}

// audioLoop writes one mixer frame per video frame for A/V sync.
func (s *StreamManager) audioLoop(stop <-chan struct{}, pipe io.Writer) {
	ticker := time.NewTicker(time.Second / time.Duration(s.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := pipe.Write(s.audio.GenerateFrame()); err != nil {
				// Pipe closed, stream is stopping
				return
			}
			s.audioFrames.Add(1)
		}
	}
}

// killFFmpegProcess force kills FFmpeg and, on Windows, its process tree.
func killFFmpegProcess(cmd *exec.Cmd, pid int) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if runtime.GOOS == "windows" {
		killCmd := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", pid))
		if err := killCmd.Run(); err == nil {
			return
		}
	}
	cmd.Process.Kill()
}
