package game

import (
	"bufio"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pong/internal/config"
)

func newTestRunner(el *EventLog) *Runner {
	return NewRunner(newTestEngine(), RunnerConfig{
		TickRate: 60,
		Rules:    config.DefaultGame(),
		EventLog: el,
	})
}

func TestRunnerInitialSnapshot(t *testing.T) {
	r := newTestRunner(nil)

	snap := r.GetSnapshot()
	if snap.Sequence != 1 {
		t.Errorf("Expected first snapshot sequence 1, got %d", snap.Sequence)
	}
	if snap.Width != 800 || snap.Height != 600 {
		t.Errorf("Unexpected snapshot size %vx%v", snap.Width, snap.Height)
	}
}

func TestRunnerStep(t *testing.T) {
	r := newTestRunner(nil)

	var calls int
	r.OnTick(func(_ time.Duration, _ GameSnapshot) { calls++ })

	for i := 0; i < 3; i++ {
		r.Step()
	}

	snap := r.GetSnapshot()
	if snap.TickNumber != 3 {
		t.Errorf("Expected tick 3, got %d", snap.TickNumber)
	}
	if calls != 3 {
		t.Errorf("Expected 3 tick callbacks, got %d", calls)
	}
}

func TestRunnerSetInput(t *testing.T) {
	r := newTestRunner(nil)

	r.SetInput("test", InputState{Down: true})
	r.Step()
	r.Step()

	if y := r.GetSnapshot().Player.Y; y != 270 {
		t.Errorf("Held down key should move paddle to 270 over two ticks, got %v", y)
	}

	r.SetInput("test", InputState{})
	r.Step()
	if y := r.GetSnapshot().Player.Y; y != 270 {
		t.Errorf("Released key should stop the paddle, got %v", y)
	}
}

func TestRunnerReset(t *testing.T) {
	tests := []struct {
		score   int
		wantErr bool
	}{
		{3, false},
		{5, false},
		{7, false},
		{4, true},
		{0, true},
		{10, true},
	}

	for _, tt := range tests {
		r := newTestRunner(nil)
		err := r.Reset(tt.score)

		if tt.wantErr {
			if !errors.Is(err, ErrInvalidWinningScore) {
				t.Errorf("Reset(%d) error = %v, want ErrInvalidWinningScore", tt.score, err)
			}
			if got := r.GetSnapshot().WinningScore; got != 5 {
				t.Errorf("Rejected reset changed winning score to %d", got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Reset(%d) unexpected error: %v", tt.score, err)
		}
		if got := r.GetSnapshot().WinningScore; got != tt.score {
			t.Errorf("Reset(%d) published winning score %d", tt.score, got)
		}
	}
}

func TestRunnerResetClearsInput(t *testing.T) {
	r := newTestRunner(nil)
	r.SetInput("test", InputState{Up: true})

	if err := r.Reset(3); err != nil {
		t.Fatal(err)
	}
	before := r.GetSnapshot().Player.Y
	r.Step()

	if y := r.GetSnapshot().Player.Y; y != before {
		t.Errorf("Input should be cleared by reset: %v -> %v", before, y)
	}
}

func TestRunnerStartStop(t *testing.T) {
	r := newTestRunner(nil)

	var ticks atomic.Int32
	r.OnTick(func(_ time.Duration, _ GameSnapshot) { ticks.Add(1) })

	r.Start()
	r.Start() // second start is a no-op
	if !r.IsRunning() {
		t.Fatal("Runner should be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	r.Stop()
	r.Stop()
	if r.IsRunning() {
		t.Error("Runner should be stopped")
	}
	if ticks.Load() < 3 {
		t.Errorf("Expected at least 3 ticks, got %d", ticks.Load())
	}

	stopped := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != stopped {
		t.Error("Ticks continued after Stop")
	}

	// Restart after stop
	r.Start()
	r.Stop()
}

func TestRunnerEmitsEvents(t *testing.T) {
	el := NewEventLog()
	if err := el.StartWriter(nil); err != nil {
		t.Fatal(err)
	}
	defer el.Stop()

	r := newTestRunner(el)
	r.SetInput("client-1", InputState{Up: true})
	if err := r.Reset(3); err != nil {
		t.Fatal(err)
	}

	if got := el.GetTotalCount(); got != 2 {
		t.Errorf("Expected input and reset events, got %d", got)
	}
}

func countEventTypes(t *testing.T, out string) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		counts[ev.Type]++
	}
	return counts
}

func TestRunnerFrozenGameOverSamplesNoTicks(t *testing.T) {
	out := &lockedBuffer{}
	el := NewEventLog()
	if err := el.StartWriter(out); err != nil {
		t.Fatal(err)
	}

	r := newTestRunner(el)
	for i := 0; i < 59; i++ {
		r.Step()
	}

	// Final point lands on tick 60, a sampled tick
	r.mu.Lock()
	r.engine.AIScore = r.engine.WinningScore - 1
	setupExit(r.engine, SideAI)
	r.mu.Unlock()

	if snap := r.Step(); !snap.GameOver || snap.TickNumber != 60 {
		t.Fatalf("Expected match to end on tick 60, got tick %d gameOver=%v", snap.TickNumber, snap.GameOver)
	}
	for i := 0; i < 120; i++ {
		r.Step()
	}
	if err := r.Reset(3); err != nil {
		t.Fatal(err)
	}
	el.Stop()

	counts := countEventTypes(t, out.String())
	if counts["tick"] != 1 {
		t.Errorf("Expected one sampled tick event, got %d", counts["tick"])
	}
	if counts["reset"] != 1 {
		t.Errorf("Expected the reset event to be recorded, got %d", counts["reset"])
	}
	if counts["game_over"] != 1 {
		t.Errorf("Expected one game_over event, got %d", counts["game_over"])
	}
}

func TestRunnerManualStep(t *testing.T) {
	r := newTestRunner(nil)

	var calls int
	r.OnTick(func(_ time.Duration, _ GameSnapshot) { calls++ })

	snap, err := r.ManualStep()
	if err != nil {
		t.Fatal(err)
	}
	if snap.TickNumber != 1 || calls != 1 {
		t.Errorf("Expected one tick and one callback, got tick %d calls %d", snap.TickNumber, calls)
	}

	r.Start()
	_, err = r.ManualStep()
	r.Stop()
	if !errors.Is(err, ErrLoopRunning) {
		t.Errorf("Expected ErrLoopRunning while the loop runs, got %v", err)
	}
}
