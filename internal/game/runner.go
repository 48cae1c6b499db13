package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pong/internal/config"
)

// ErrInvalidWinningScore is returned by Reset for thresholds outside the allowed set.
var ErrInvalidWinningScore = errors.New("invalid winning score")

// ErrLoopRunning is returned by ManualStep while the ticker owns the engine.
var ErrLoopRunning = errors.New("game loop is running")

// engineSource tags events produced by the simulation itself.
const engineSource = "engine"

// RunnerConfig configures the fixed-rate loop.
type RunnerConfig struct {
	TickRate int
	Rules    config.GameConfig

	// EventLog is optional; nil disables event recording.
	EventLog *EventLog
}

// Runner drives one Engine from a ticker goroutine and serves it to
// concurrent readers (HTTP handlers, WebSocket hub, stream renderer).
type Runner struct {
	mu     sync.Mutex
	engine *Engine
	input  InputState
	rules  config.GameConfig

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	snapshots *SnapshotPool
	eventLog  *EventLog
	onTick    func(time.Duration, GameSnapshot)
}

// NewRunner wraps engine. The first snapshot is published immediately so
// readers never observe an empty pool.
func NewRunner(engine *Engine, cfg RunnerConfig) *Runner {
	if cfg.TickRate <= 0 {
		cfg.TickRate = config.DefaultScreen().FPS
	}
	r := &Runner{
		engine:    engine,
		rules:     cfg.Rules,
		tickRate:  cfg.TickRate,
		snapshots: NewSnapshotPool(),
		eventLog:  cfg.EventLog,
	}
	r.snapshots.Publish(engine.Snapshot())
	return r
}

// OnTick registers a callback invoked after every tick with its duration.
// Must be set before Start.
func (r *Runner) OnTick(fn func(time.Duration, GameSnapshot)) {
	r.mu.Lock()
	r.onTick = fn
	r.mu.Unlock()
}

// Start begins the game loop
func (r *Runner) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.done = make(chan struct{})
	r.ticker = time.NewTicker(time.Second / time.Duration(r.tickRate))
	ticker, stop, done := r.ticker, r.stopChan, r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				r.Step()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game loop started at %d TPS", r.tickRate)
}

// Stop stops the game loop and waits for the current tick to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.ticker.Stop()
	close(r.stopChan)
	done := r.done
	r.mu.Unlock()

	<-done
	log.Println("🛑 Game loop stopped")
}

// IsRunning reports whether the ticker goroutine is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Step runs one tick: latched input, physics, events, snapshot.
func (r *Runner) Step() GameSnapshot {
	start := time.Now()
	r.mu.Lock()
	return r.finishStep(start)
}

// ManualStep runs one tick only while the loop is stopped. The running check
// and the tick share one critical section so a concurrent Start cannot
// slip a second tick in between.
func (r *Runner) ManualStep() (GameSnapshot, error) {
	start := time.Now()
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return GameSnapshot{}, ErrLoopRunning
	}
	return r.finishStep(start), nil
}

// finishStep ticks the engine. Caller holds r.mu; it is released here.
func (r *Runner) finishStep(start time.Time) GameSnapshot {
	r.engine.HandleInput(r.input)
	res := r.engine.Update()
	snap := r.engine.Snapshot()
	r.snapshots.Publish(snap)
	onTick := r.onTick
	r.mu.Unlock()

	if res.GameOver {
		log.Printf("🏆 %s wins %d-%d", snap.Winner, snap.PlayerScore, snap.AIScore)
	}
	r.emitTick(res, snap)

	if onTick != nil {
		onTick(time.Since(start), snap)
	}
	return snap
}

// SetInput latches the held keys applied on every following tick.
// source identifies the client for event rate limiting.
func (r *Runner) SetInput(source string, in InputState) {
	r.mu.Lock()
	changed := r.input != in
	r.input = in
	tick := r.engine.tickCount
	r.mu.Unlock()

	if changed {
		r.emit(EventTypeInput, tick, source, InputPayload{Up: in.Up, Down: in.Down})
	}
}

// Reset starts a new match. The threshold must be one of the allowed replay scores.
func (r *Runner) Reset(winningScore int) error {
	if !r.rules.IsAllowedWinningScore(winningScore) {
		return fmt.Errorf("%w: %d (allowed %v)", ErrInvalidWinningScore, winningScore, r.rules.AllowedWinningScores)
	}

	r.mu.Lock()
	r.engine.ResetGame(winningScore)
	r.input = InputState{}
	snap := r.engine.Snapshot()
	r.snapshots.Publish(snap)
	r.mu.Unlock()

	r.emit(EventTypeReset, snap.TickNumber, engineSource, ResetPayload{WinningScore: winningScore})
	log.Printf("🔄 New match: first to %d", winningScore)
	return nil
}

// GetSnapshot returns the latest published snapshot without taking the engine lock.
func (r *Runner) GetSnapshot() GameSnapshot {
	return *r.snapshots.Latest()
}

// Render draws the latest snapshot onto s.
func (r *Runner) Render(s Surface) {
	Draw(s, r.GetSnapshot())
}

// SetSounds replaces the engine's effect bank.
func (r *Runner) SetSounds(s Sounds) {
	r.mu.Lock()
	r.engine.SetSounds(s)
	r.mu.Unlock()
}

// EventLog returns the attached event log (may be nil).
func (r *Runner) EventLog() *EventLog {
	return r.eventLog
}

func (r *Runner) emitTick(res TickResult, snap GameSnapshot) {
	if r.eventLog == nil {
		return
	}
	bounce := BouncePayload{BallX: snap.Ball.X, BallY: snap.Ball.Y, DX: snap.Ball.DX, DY: snap.Ball.DY}

	// The tick counter is frozen on the game-over screen; only sample ticks
	// the engine actually ran.
	advanced := !snap.GameOver || res.GameOver
	if advanced && snap.TickNumber > 0 && snap.TickNumber%uint64(r.tickRate) == 0 {
		r.emit(EventTypeTick, snap.TickNumber, engineSource, TickPayload{BallX: snap.Ball.X, BallY: snap.Ball.Y})
	}
	if res.WallBounce {
		r.emit(EventTypeWallBounce, snap.TickNumber, engineSource, bounce)
	}
	if res.PaddleHit {
		r.emit(EventTypePaddleHit, snap.TickNumber, engineSource, bounce)
	}
	if res.Scored != SideNone {
		r.emit(EventTypeScore, snap.TickNumber, engineSource, ScorePayload{
			Scorer:      res.Scored,
			PlayerScore: snap.PlayerScore,
			AIScore:     snap.AIScore,
		})
	}
	if res.GameOver {
		r.emit(EventTypeGameOver, snap.TickNumber, engineSource, GameOverPayload{
			Winner:       snap.Winner,
			PlayerScore:  snap.PlayerScore,
			AIScore:      snap.AIScore,
			WinningScore: snap.WinningScore,
		})
	}
}

func (r *Runner) emit(t EventType, tick uint64, source string, payload interface{}) {
	if r.eventLog == nil {
		return
	}
	r.eventLog.EmitSimple(t, tick, source, payload)
}
