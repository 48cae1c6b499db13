package streaming

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MaxConsecutiveErrors before the connection is declared lost
	MaxConsecutiveErrors = 10
	// ErrorResetInterval clears the error streak after this long without errors
	ErrorResetInterval = 5 * time.Second
	// BackpressureWarningThreshold is a write time, in frame intervals, worth a warning
	BackpressureWarningThreshold = 2.0
	// SevereBackpressureThreshold is a write time, in frame intervals, that stutters the stream
	SevereBackpressureThreshold = 5.0
	// BackpressureLogInterval rate limits backpressure warnings
	BackpressureLogInterval = 5 * time.Second
	// starvingFrames of empty buffer before logging that rendering is too slow
	starvingFrames = 60
)

// AsyncFrameWriter pulls frames from a FrameRingBuffer and writes them to
// FFmpeg's stdin at a steady rate, isolating the render loop from pipe stalls.
type AsyncFrameWriter struct {
	ringBuffer *FrameRingBuffer
	pipe       io.Writer
	frame      []byte

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  atomic.Bool

	framesWritten  atomic.Uint64
	writeErrors    atomic.Uint64
	avgWriteTimeNs atomic.Int64
	maxWriteTimeNs atomic.Int64

	backpressureEvents atomic.Int64
	severeBackpressure atomic.Int64

	consecutiveErrors atomic.Int32
	connectionLost    atomic.Bool

	mu                  sync.Mutex
	lastErrorTime       time.Time
	lastBackpressureLog time.Time
	bitrate             int
	onConnectionLost    func()
}

// NewAsyncFrameWriter creates a writer draining ringBuffer into pipe.
func NewAsyncFrameWriter(ringBuffer *FrameRingBuffer, pipe io.Writer) *AsyncFrameWriter {
	return &AsyncFrameWriter{
		ringBuffer: ringBuffer,
		pipe:       pipe,
		frame:      make([]byte, ringBuffer.FrameSize()),
	}
}

// SetBitrate records the configured bitrate for backpressure advice.
func (w *AsyncFrameWriter) SetBitrate(kbps int) {
	w.mu.Lock()
	w.bitrate = kbps
	w.mu.Unlock()
}

// SetOnConnectionLost registers a callback fired once after
// MaxConsecutiveErrors consecutive write failures.
func (w *AsyncFrameWriter) SetOnConnectionLost(callback func()) {
	w.mu.Lock()
	w.onConnectionLost = callback
	w.mu.Unlock()
}

// IsConnectionLost reports whether the error threshold was reached.
func (w *AsyncFrameWriter) IsConnectionLost() bool {
	return w.connectionLost.Load()
}

// Start begins writing at fps frames per second.
func (w *AsyncFrameWriter) Start(fps int) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.connectionLost.Store(false)
	w.consecutiveErrors.Store(0)
	w.stopChan = make(chan struct{})

	interval := time.Second / time.Duration(fps)
	w.wg.Add(1)
	go w.loop(interval)
	log.Printf("📡 AsyncFrameWriter started at %d FPS (%.2fms interval)", fps, interval.Seconds()*1000)
}

func (w *AsyncFrameWriter) loop(interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	empty := 0
	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if w.connectionLost.Load() {
				continue
			}
			if !w.ringBuffer.TryRead(w.frame) {
				empty++
				if empty == starvingFrames {
					log.Println("⚠️ AsyncFrameWriter: buffer starving - render loop may be too slow")
				}
				continue
			}
			empty = 0
			w.writeFrame(interval)
		}
	}
}

func (w *AsyncFrameWriter) writeFrame(interval time.Duration) {
	start := time.Now()
	_, err := w.pipe.Write(w.frame)
	elapsed := time.Since(start)

	if err != nil {
		w.recordError(err)
		return
	}

	if w.consecutiveErrors.Load() > 0 {
		w.mu.Lock()
		lastErr := w.lastErrorTime
		w.mu.Unlock()
		if time.Since(lastErr) > ErrorResetInterval {
			w.consecutiveErrors.Store(0)
			log.Println("✅ Connection recovered - error counter reset")
		}
	}

	w.framesWritten.Add(1)

	// Exponential moving average
	ns := elapsed.Nanoseconds()
	w.avgWriteTimeNs.Store((w.avgWriteTimeNs.Load()*9 + ns) / 10)
	if ns > w.maxWriteTimeNs.Load() {
		w.maxWriteTimeNs.Store(ns)
	}

	w.checkBackpressure(elapsed, interval)
}

func (w *AsyncFrameWriter) recordError(err error) {
	w.writeErrors.Add(1)
	count := w.consecutiveErrors.Add(1)
	if count <= 5 {
		log.Printf("❌ AsyncFrameWriter write error (%d/%d): %v", count, MaxConsecutiveErrors, err)
	}

	w.mu.Lock()
	w.lastErrorTime = time.Now()
	callback := w.onConnectionLost
	w.mu.Unlock()

	if count >= MaxConsecutiveErrors && w.connectionLost.CompareAndSwap(false, true) {
		log.Printf("🔴 Connection lost detected after %d consecutive errors", count)
		if callback != nil {
			go callback()
		}
	}
}

func (w *AsyncFrameWriter) checkBackpressure(elapsed, interval time.Duration) {
	ratio := float64(elapsed) / float64(interval)
	if ratio < BackpressureWarningThreshold {
		return
	}

	w.backpressureEvents.Add(1)
	severe := ratio >= SevereBackpressureThreshold
	if severe {
		w.severeBackpressure.Add(1)
	}

	w.mu.Lock()
	if time.Since(w.lastBackpressureLog) <= BackpressureLogInterval {
		w.mu.Unlock()
		return
	}
	w.lastBackpressureLog = time.Now()
	bitrate := w.bitrate
	w.mu.Unlock()

	if !severe {
		log.Printf("⚠️ Backpressure detected: FFmpeg write took %.0fms (target: %.1fms)",
			elapsed.Seconds()*1000, interval.Seconds()*1000)
		return
	}

	log.Printf("🔴 SEVERE BACKPRESSURE: FFmpeg write took %.0fms (target: %.1fms)",
		elapsed.Seconds()*1000, interval.Seconds()*1000)
	if bitrate > 0 {
		recommended := bitrate * 2 / 3
		if recommended < 1000 {
			recommended = 1000
		}
		log.Printf("   💡 Try reducing STREAM_BITRATE from %dk to %dk", bitrate, recommended)
	}
}

// Stop stops the writer and waits for it to exit.
func (w *AsyncFrameWriter) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.stopChan)
	w.wg.Wait()
	log.Println("📡 AsyncFrameWriter stopped")
}

// IsRunning reports whether the writer goroutine is active.
func (w *AsyncFrameWriter) IsRunning() bool {
	return w.running.Load()
}

// GetStats returns writer and ring buffer counters.
func (w *AsyncFrameWriter) GetStats() map[string]interface{} {
	written, dropped, read := w.ringBuffer.GetStats()

	return map[string]interface{}{
		"framesWritten":      w.framesWritten.Load(),
		"writeErrors":        w.writeErrors.Load(),
		"consecutiveErrors":  w.consecutiveErrors.Load(),
		"connectionLost":     w.connectionLost.Load(),
		"avgWriteTimeMs":     float64(w.avgWriteTimeNs.Load()) / 1e6,
		"maxWriteTimeMs":     float64(w.maxWriteTimeNs.Load()) / 1e6,
		"backpressureEvents": w.backpressureEvents.Load(),
		"severeBackpressure": w.severeBackpressure.Load(),
		"bufferAvailable":    w.ringBuffer.Available(),
		"bufferWritten":      written,
		"bufferDropped":      dropped,
		"bufferRead":         read,
	}
}
