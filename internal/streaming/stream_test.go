package streaming

import (
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"pong/internal/audio"
	"pong/internal/config"
	"pong/internal/game"
	"pong/internal/render"
)

type staticSource struct{ snap game.GameSnapshot }

func (s staticSource) GetSnapshot() game.GameSnapshot { return s.snap }

func newTestManager(t *testing.T, withAudio bool) *StreamManager {
	t.Helper()

	r, err := render.NewRenderer(160, 120, "")
	if err != nil {
		t.Fatal(err)
	}

	rules := config.DefaultGame()
	rules.PaddleHeight = 40
	e := game.NewEngine(game.EngineConfig{Width: 160, Height: 120, Rules: rules, Seed: 1})

	var src AudioSource
	if withAudio {
		src = audio.NewMixer(config.DefaultAudio(), 30)
	}

	cfg := StreamConfig{FPS: 30, Bitrate: 500, RTMPURL: "rtmp://example.test/live", StreamKey: "key123"}
	return NewStreamManager(staticSource{e.Snapshot()}, r, src, cfg)
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestNewStreamConfig(t *testing.T) {
	stream := config.DefaultStream()
	stream.StreamKey = "abc"

	cfg := NewStreamConfig(config.DefaultScreen(), stream)
	if cfg.Width != 800 || cfg.Height != 600 || cfg.FPS != 60 {
		t.Errorf("Unexpected screen settings %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.StreamKey != "abc" || cfg.Bitrate != 2500 {
		t.Errorf("Unexpected stream settings %+v", cfg)
	}
}

func TestBuildArgs(t *testing.T) {
	sm := newTestManager(t, false)
	args := sm.buildArgs()

	if got := argValue(args, "-s"); got != "160x120" {
		t.Errorf("Expected size 160x120, got %q", got)
	}
	if got := argValue(args, "-r"); got != "30" {
		t.Errorf("Expected rate 30, got %q", got)
	}
	if got := argValue(args, "-b:v"); got != "500k" {
		t.Errorf("Expected bitrate 500k, got %q", got)
	}
	if last := args[len(args)-1]; last != "rtmp://example.test/live/key123" {
		t.Errorf("Unexpected output URL %q", last)
	}
	if !strings.Contains(strings.Join(args, " "), "anullsrc") {
		t.Error("Silent stream should use anullsrc")
	}
}

func TestBuildArgsOutputOverride(t *testing.T) {
	sm := newTestManager(t, false)
	sm.config.OutputFormat = "null"
	sm.config.OutputURL = "-"

	args := sm.buildArgs()
	if args[len(args)-1] != "-" || args[len(args)-2] != "null" || args[len(args)-3] != "-f" {
		t.Errorf("Unexpected output args %v", args[len(args)-3:])
	}
}

func TestRenderNextDoubleBuffers(t *testing.T) {
	sm := newTestManager(t, false)

	first := sm.renderNext()
	for _, b := range first {
		if b != 0 {
			t.Fatal("First front buffer should be empty")
		}
	}

	second := sm.renderNext()
	if len(second) != 160*120*4 {
		t.Fatalf("Unexpected frame length %d", len(second))
	}
	// Opaque background once rendered
	if second[3] != 255 {
		t.Errorf("Expected opaque rendered frame, alpha=%d", second[3])
	}
	if &first[0] == &second[0] {
		t.Error("Consecutive frames should come from different buffers")
	}
}

func TestStopWhenNotStreaming(t *testing.T) {
	sm := newTestManager(t, true)
	sm.Stop()
	if sm.IsStreaming() {
		t.Error("Should not be streaming")
	}
	stats := sm.GetStats()
	if stats["streaming"] != false {
		t.Errorf("Unexpected stats %v", stats)
	}
}

func TestStartMissingFFmpeg(t *testing.T) {
	sm := newTestManager(t, true)
	sm.config.FFmpegPath = "/nonexistent/ffmpeg"

	if err := sm.Start(); err == nil {
		sm.Stop()
		t.Fatal("Expected error for missing ffmpeg binary")
	}
	if sm.IsStreaming() {
		t.Error("Failed start must not leave the manager streaming")
	}
}

// TestRealStream runs the full pipeline against FFmpeg's null muxer.
func TestRealStream(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping real stream test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("FFmpeg not installed, skipping real stream test")
	}

	sm := newTestManager(t, true)
	sm.config.OutputFormat = "null"
	sm.config.OutputURL = "-"

	started := make(chan struct{})
	sm.OnStreamStart(func() { close(started) })

	if err := sm.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sm.Start(); !errors.Is(err, ErrAlreadyStreaming) {
		t.Errorf("Second Start should return ErrAlreadyStreaming, got %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Error("OnStreamStart callback not called")
	}

	time.Sleep(1500 * time.Millisecond)
	stats := sm.GetStats()
	sm.Stop()

	if stats["framesRendered"].(int64) < 10 {
		t.Errorf("Expected frames to be rendered, stats=%v", stats)
	}
	if stats["audioFrames"].(int64) < 10 {
		t.Errorf("Expected audio frames to be written, stats=%v", stats)
	}
	if sm.IsStreaming() {
		t.Error("Stream should be stopped")
	}
}

func TestNoOpStreamer(t *testing.T) {
	n := NewNoOpStreamer()
	if err := n.Start(); err != nil {
		t.Errorf("Start returned %v", err)
	}
	n.Stop()
	if n.IsStreaming() {
		t.Error("NoOpStreamer never streams")
	}
	if n.GetStats()["mode"] != "disabled" {
		t.Errorf("Unexpected stats %v", n.GetStats())
	}
}

func TestFrameRingBuffer(t *testing.T) {
	rb := NewFrameRingBuffer(4)
	dst := make([]byte, 4)

	if rb.TryRead(dst) {
		t.Fatal("Empty buffer should not read")
	}
	if rb.TryWrite([]byte{1, 2, 3}) {
		t.Error("Wrong sized frame should be rejected")
	}

	// One slot is always kept free
	for i := 0; i < BufferSize-1; i++ {
		if !rb.TryWrite([]byte{byte(i), 0, 0, 0}) {
			t.Fatalf("Write %d should succeed", i)
		}
	}
	if rb.TryWrite([]byte{99, 0, 0, 0}) {
		t.Error("Full buffer should drop the frame")
	}
	if rb.Available() != BufferSize-1 {
		t.Errorf("Expected %d available, got %d", BufferSize-1, rb.Available())
	}

	for i := 0; i < BufferSize-1; i++ {
		if !rb.TryRead(dst) || dst[0] != byte(i) {
			t.Fatalf("Read %d returned %v", i, dst)
		}
	}

	written, dropped, read := rb.GetStats()
	if written != BufferSize-1 || dropped != 1 || read != BufferSize-1 {
		t.Errorf("Unexpected stats written=%d dropped=%d read=%d", written, dropped, read)
	}

	rb.Reset()
	if rb.Available() != 0 {
		t.Error("Reset should empty the buffer")
	}
}

type recordingPipe struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (p *recordingPipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	p.frames = append(p.frames, append([]byte(nil), b...))
	return len(b), nil
}

func (p *recordingPipe) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestAsyncFrameWriter(t *testing.T) {
	rb := NewFrameRingBuffer(2)
	pipe := &recordingPipe{}
	w := NewAsyncFrameWriter(rb, pipe)

	rb.TryWrite([]byte{1, 1})
	rb.TryWrite([]byte{2, 2})

	w.Start(200)
	w.Start(200)
	defer w.Stop()

	if !waitFor(func() bool { return pipe.count() == 2 }) {
		t.Fatalf("Expected 2 frames written, got %d", pipe.count())
	}
	if pipe.frames[0][0] != 1 || pipe.frames[1][0] != 2 {
		t.Error("Frames written out of order")
	}
}

func TestAsyncFrameWriterConnectionLost(t *testing.T) {
	rb := NewFrameRingBuffer(1)
	pipe := &recordingPipe{err: errors.New("broken pipe")}
	w := NewAsyncFrameWriter(rb, pipe)

	lost := make(chan struct{})
	w.SetOnConnectionLost(func() { close(lost) })

	w.Start(500)
	defer w.Stop()

	go func() {
		for i := 0; i < MaxConsecutiveErrors*4 && !w.IsConnectionLost(); i++ {
			rb.TryWrite([]byte{byte(i)})
			time.Sleep(2 * time.Millisecond)
		}
	}()

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("Connection lost callback not fired")
	}
	if !w.IsConnectionLost() {
		t.Error("Writer should report connection lost")
	}
}
