package game

import (
	"math/rand"
	"time"

	"pong/internal/config"
)

// EngineConfig configures a single match.
type EngineConfig struct {
	Width  float64
	Height float64
	Rules  config.GameConfig

	// Seed for the ball direction RNG; 0 picks a time-based seed.
	Seed int64

	Sounds Sounds
}

// TickResult reports what happened during one Update.
type TickResult struct {
	WallBounce bool
	PaddleHit  bool
	Scored     Side // Side that won the point, SideNone if nobody scored
	GameOver   bool // Match ended on this tick
}

// Engine owns the two paddles, the ball and the score.
//
// It is single-threaded: callers drive it from one loop (the ebiten Update
// callback or a Runner) and never touch it concurrently.
type Engine struct {
	width  float64
	height float64
	rules  config.GameConfig

	Player *Paddle
	AI     *Paddle
	Ball   *Ball

	PlayerScore  int
	AIScore      int
	GameOver     bool
	Winner       Side
	WinningScore int

	sounds Sounds

	tickCount   uint64
	wallBounces uint64
	paddleHits  uint64
	points      uint64
}

// NewEngine creates an engine with both paddles vertically centred.
func NewEngine(cfg EngineConfig) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rules := cfg.Rules
	if rules.WinningScore <= 0 {
		rules.WinningScore = config.DefaultGame().WinningScore
	}

	startY := cfg.Height/2 - rules.PaddleHeight/2

	return &Engine{
		width:        cfg.Width,
		height:       cfg.Height,
		rules:        rules,
		Player:       NewPaddle(rules.PaddleMargin, startY, rules.PaddleWidth, rules.PaddleHeight),
		AI:           NewPaddle(cfg.Width-rules.PaddleMargin-rules.PaddleWidth, startY, rules.PaddleWidth, rules.PaddleHeight),
		Ball:         NewBall(rules.BallRadius, rules.BallSpeed, cfg.Width, cfg.Height, rand.New(rand.NewSource(seed))),
		WinningScore: rules.WinningScore,
		sounds:       cfg.Sounds,
	}
}

// SetSounds replaces the effect bank.
func (e *Engine) SetSounds(s Sounds) {
	e.sounds = s
}

// HandleInput moves the player paddle by one step per held key.
// Input is ignored once the match is over.
func (e *Engine) HandleInput(in InputState) {
	if e.GameOver {
		return
	}
	if in.Up {
		e.Player.Move(-e.rules.PlayerSpeed, e.height)
	}
	if in.Down {
		e.Player.Move(e.rules.PlayerSpeed, e.height)
	}
}

// Update advances the match by one frame. Does nothing after game over.
func (e *Engine) Update() TickResult {
	var res TickResult
	if e.GameOver {
		return res
	}
	e.tickCount++

	if e.Ball.Move() {
		res.WallBounce = true
		e.wallBounces++
		play(e.sounds.Wall)
	}

	if e.Ball.CheckCollision(e.Player, e.AI) {
		res.PaddleHit = true
		e.paddleHits++
		play(e.sounds.Paddle)
	}

	if e.Ball.X <= 0 {
		e.AIScore++
		res.Scored = SideAI
	} else if e.Ball.X >= e.width {
		e.PlayerScore++
		res.Scored = SidePlayer
	}
	if res.Scored != SideNone {
		e.points++
		e.Ball.Reset()
		play(e.sounds.Score)
	}

	e.AI.AutoTrack(e.Ball, e.height, e.rules.AISpeed)

	res.GameOver = e.CheckGameOver()
	return res
}

// CheckGameOver sets the winner once either score reaches the threshold.
// Returns true only on the call that ends the match.
func (e *Engine) CheckGameOver() bool {
	if e.GameOver {
		return false
	}
	switch {
	case e.PlayerScore >= e.WinningScore:
		e.Winner = SidePlayer
	case e.AIScore >= e.WinningScore:
		e.Winner = SideAI
	default:
		return false
	}
	e.GameOver = true
	return true
}

// ResetGame starts a new match to winningScore points.
// A non-positive threshold falls back to the configured default.
func (e *Engine) ResetGame(winningScore int) {
	if winningScore <= 0 {
		winningScore = e.rules.WinningScore
	}
	e.PlayerScore = 0
	e.AIScore = 0
	e.Ball.Reset()
	e.GameOver = false
	e.Winner = SideNone
	e.WinningScore = winningScore
}

// Render draws the current frame onto s.
func (e *Engine) Render(s Surface) {
	Draw(s, e.Snapshot())
}

// Snapshot returns a value copy of the current state.
func (e *Engine) Snapshot() GameSnapshot {
	return GameSnapshot{
		TickNumber: e.tickCount,
		Width:      e.width,
		Height:     e.height,
		Player:     PaddleSnapshot{X: e.Player.X, Y: e.Player.Y, Width: e.Player.Width, Height: e.Player.Height},
		AI:         PaddleSnapshot{X: e.AI.X, Y: e.AI.Y, Width: e.AI.Width, Height: e.AI.Height},
		Ball: BallSnapshot{
			X: e.Ball.X, Y: e.Ball.Y,
			DX: e.Ball.DX, DY: e.Ball.DY,
			Radius: e.Ball.Radius,
		},
		PlayerScore:  e.PlayerScore,
		AIScore:      e.AIScore,
		WinningScore: e.WinningScore,
		GameOver:     e.GameOver,
		Winner:       e.Winner,
		WallBounces:  e.wallBounces,
		PaddleHits:   e.paddleHits,
		Points:       e.points,
	}
}

// Size returns the playfield dimensions.
func (e *Engine) Size() (width, height float64) {
	return e.width, e.height
}
