package game

import (
	"sync/atomic"
	"time"
)

// PaddleSnapshot is an immutable copy of a paddle for rendering.
type PaddleSnapshot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the paddle's bounding box.
func (p PaddleSnapshot) Rect() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// BallSnapshot is an immutable copy of the ball for rendering.
type BallSnapshot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Radius float64 `json:"radius"`
}

// Rect returns the ball's bounding box.
func (b BallSnapshot) Rect() Rect {
	return Rect{X: b.X - b.Radius, Y: b.Y - b.Radius, Width: b.Radius * 2, Height: b.Radius * 2}
}

// GameSnapshot is a complete immutable game state.
// Uses value types only so it can be copied freely between goroutines.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"` // Monotonic sequence for ordering
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Player PaddleSnapshot `json:"player"`
	AI     PaddleSnapshot `json:"ai"`
	Ball   BallSnapshot   `json:"ball"`

	PlayerScore  int  `json:"playerScore"`
	AIScore      int  `json:"aiScore"`
	WinningScore int  `json:"winningScore"`
	GameOver     bool `json:"gameOver"`
	Winner       Side `json:"winner"`

	// Cumulative counters since the engine was created
	WallBounces uint64 `json:"wallBounces"`
	PaddleHits  uint64 `json:"paddleHits"`
	Points      uint64 `json:"points"`
}

// SnapshotPool publishes snapshots from the tick goroutine to any number of readers.
// Each published snapshot is never mutated again, so readers need no lock.
type SnapshotPool struct {
	latest   atomic.Pointer[GameSnapshot]
	sequence atomic.Uint64
}

// NewSnapshotPool creates an empty pool.
func NewSnapshotPool() *SnapshotPool {
	return &SnapshotPool{}
}

// Publish stamps snap with the next sequence number and makes it visible to readers.
func (p *SnapshotPool) Publish(snap GameSnapshot) {
	snap.Sequence = p.sequence.Add(1)
	snap.Timestamp = time.Now()
	p.latest.Store(&snap)
}

// Latest returns the most recent snapshot, or nil before the first Publish.
func (p *SnapshotPool) Latest() *GameSnapshot {
	return p.latest.Load()
}
