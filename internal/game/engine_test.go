package game

import (
	"image/color"
	"testing"

	"pong/internal/config"
)

type countingSound struct{ plays int }

func (s *countingSound) Play() { s.plays++ }

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{
		Width:  800,
		Height: 600,
		Rules:  config.DefaultGame(),
		Seed:   1,
	})
}

// setupExit places the ball one step from leaving the field on the given side,
// well away from both paddles.
func setupExit(e *Engine, side Side) {
	e.Player.Y, e.AI.Y = 400, 400
	e.Ball.Y, e.Ball.DY = 100, 7
	if side == SideAI {
		e.Ball.X, e.Ball.DX = 3, -7
	} else {
		e.Ball.X, e.Ball.DX = 797, 7
	}
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine()

	if e.Player.X != 10 || e.Player.Y != 250 {
		t.Errorf("Unexpected player paddle position (%v, %v)", e.Player.X, e.Player.Y)
	}
	if e.AI.X != 780 || e.AI.Y != 250 {
		t.Errorf("Unexpected AI paddle position (%v, %v)", e.AI.X, e.AI.Y)
	}
	if e.Ball.X != 400 || e.Ball.Y != 300 {
		t.Errorf("Ball should start centred, got (%v, %v)", e.Ball.X, e.Ball.Y)
	}
	if e.WinningScore != 5 {
		t.Errorf("Expected default winning score 5, got %d", e.WinningScore)
	}
	if e.GameOver || e.Winner != SideNone {
		t.Error("New engine should not be game over")
	}
}

func TestScoreIncrementsOncePerExit(t *testing.T) {
	tests := []struct {
		side       Side
		wantPlayer int
		wantAI     int
	}{
		{SideAI, 0, 1},
		{SidePlayer, 1, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.side), func(t *testing.T) {
			score := &countingSound{}
			e := newTestEngine()
			e.SetSounds(Sounds{Score: score})
			setupExit(e, tt.side)

			res := e.Update()
			if res.Scored != tt.side {
				t.Errorf("Expected %q to score, got %q", tt.side, res.Scored)
			}
			if e.PlayerScore != tt.wantPlayer || e.AIScore != tt.wantAI {
				t.Errorf("Unexpected score %d-%d", e.PlayerScore, e.AIScore)
			}
			if e.Ball.X != 400 || e.Ball.Y != 300 {
				t.Errorf("Ball should reset after a point, got (%v, %v)", e.Ball.X, e.Ball.Y)
			}
			if score.plays != 1 {
				t.Errorf("Expected 1 score sound, got %d", score.plays)
			}

			// Next tick from the centre must not score again
			e.Update()
			if e.PlayerScore+e.AIScore != 1 {
				t.Errorf("Point counted more than once: %d-%d", e.PlayerScore, e.AIScore)
			}
		})
	}
}

func TestGameOverAtWinningScore(t *testing.T) {
	for _, threshold := range []int{3, 5, 7} {
		e := newTestEngine()
		e.ResetGame(threshold)

		for i := 1; i <= threshold; i++ {
			setupExit(e, SidePlayer)
			res := e.Update()

			if i < threshold && e.GameOver {
				t.Fatalf("threshold %d: game over after only %d points", threshold, i)
			}
			if i == threshold {
				if !res.GameOver || !e.GameOver {
					t.Fatalf("threshold %d: expected game over", threshold)
				}
				if e.Winner != SidePlayer {
					t.Errorf("Expected Player to win, got %q", e.Winner)
				}
			}
		}
	}
}

func TestAIWins(t *testing.T) {
	e := newTestEngine()
	e.ResetGame(3)

	for i := 0; i < 3; i++ {
		setupExit(e, SideAI)
		e.Update()
	}

	if !e.GameOver || e.Winner != SideAI {
		t.Errorf("Expected AI win, got over=%v winner=%q", e.GameOver, e.Winner)
	}
}

func TestUpdateFrozenAfterGameOver(t *testing.T) {
	e := newTestEngine()
	e.ResetGame(3)
	for i := 0; i < 3; i++ {
		setupExit(e, SidePlayer)
		e.Update()
	}
	if !e.GameOver {
		t.Fatal("Expected game over")
	}

	before := e.Snapshot()
	for i := 0; i < 50; i++ {
		if res := e.Update(); res != (TickResult{}) {
			t.Fatalf("Update after game over reported %+v", res)
		}
	}
	e.HandleInput(InputState{Down: true})
	after := e.Snapshot()

	if before != after {
		t.Errorf("State changed after game over:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestResetGame(t *testing.T) {
	e := newTestEngine()
	e.ResetGame(3)
	for i := 0; i < 3; i++ {
		setupExit(e, SideAI)
		e.Update()
	}

	e.ResetGame(7)

	if e.GameOver || e.Winner != SideNone {
		t.Error("ResetGame should clear game over state")
	}
	if e.PlayerScore != 0 || e.AIScore != 0 {
		t.Errorf("ResetGame should zero scores, got %d-%d", e.PlayerScore, e.AIScore)
	}
	if e.WinningScore != 7 {
		t.Errorf("Expected winning score 7, got %d", e.WinningScore)
	}

	e.ResetGame(0)
	if e.WinningScore != 5 {
		t.Errorf("Non-positive threshold should fall back to 5, got %d", e.WinningScore)
	}
}

func TestHandleInput(t *testing.T) {
	e := newTestEngine()

	e.HandleInput(InputState{Up: true})
	if e.Player.Y != 240 {
		t.Errorf("Up should move paddle to 240, got %v", e.Player.Y)
	}
	e.HandleInput(InputState{Down: true})
	e.HandleInput(InputState{Down: true})
	if e.Player.Y != 260 {
		t.Errorf("Down twice should move paddle to 260, got %v", e.Player.Y)
	}
	e.HandleInput(InputState{Up: true, Down: true})
	if e.Player.Y != 260 {
		t.Errorf("Both keys should cancel out, got %v", e.Player.Y)
	}
}

func TestUpdateSounds(t *testing.T) {
	wall, paddle := &countingSound{}, &countingSound{}
	e := newTestEngine()
	e.SetSounds(Sounds{Wall: wall, Paddle: paddle})

	e.Ball.X, e.Ball.Y, e.Ball.DX, e.Ball.DY = 400, 10, 7, -7
	if res := e.Update(); !res.WallBounce {
		t.Error("Expected wall bounce")
	}

	e.Player.Y = 250
	e.Ball.X, e.Ball.Y, e.Ball.DX, e.Ball.DY = 29, 300, -7, 7
	if res := e.Update(); !res.PaddleHit {
		t.Error("Expected paddle hit")
	}
	if e.Ball.DX != 7 {
		t.Errorf("Expected DX reflected to 7, got %v", e.Ball.DX)
	}

	if wall.plays != 1 || paddle.plays != 1 {
		t.Errorf("Expected one wall and one paddle sound, got %d and %d", wall.plays, paddle.plays)
	}

	snap := e.Snapshot()
	if snap.WallBounces != 1 || snap.PaddleHits != 1 {
		t.Errorf("Unexpected counters %d/%d", snap.WallBounces, snap.PaddleHits)
	}
}

func TestUpdateWithoutSounds(t *testing.T) {
	e := newTestEngine()
	setupExit(e, SideAI)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Update panicked without sounds: %v", r)
		}
	}()
	e.Update()
}

func TestAIPaddleTracksBall(t *testing.T) {
	e := newTestEngine()
	e.Ball.X, e.Ball.Y, e.Ball.DX, e.Ball.DY = 400, 100, 7, 7

	startY := e.AI.Y
	e.Update()
	if e.AI.Y >= startY {
		t.Errorf("AI paddle should move up toward the ball: %v -> %v", startY, e.AI.Y)
	}
}

// recordingSurface captures draw calls for assertions.
type recordingSurface struct {
	fills    int
	rects    []Rect
	ellipses []Rect
	lines    int
	texts    []string
}

func (s *recordingSurface) Fill(color.Color)                 { s.fills++ }
func (s *recordingSurface) FillRect(r Rect, _ color.Color)    { s.rects = append(s.rects, r) }
func (s *recordingSurface) FillEllipse(r Rect, _ color.Color) { s.ellipses = append(s.ellipses, r) }
func (s *recordingSurface) Line(_, _, _, _ float64, _ color.Color) {
	s.lines++
}
func (s *recordingSurface) Text(str string, _, _, _ float64, _ Align, _ color.Color) {
	s.texts = append(s.texts, str)
}

func TestRenderPlaying(t *testing.T) {
	e := newTestEngine()
	s := &recordingSurface{}

	e.Render(s)

	if s.fills != 1 {
		t.Errorf("Expected background fill, got %d", s.fills)
	}
	if len(s.rects) != 2 || len(s.ellipses) != 1 || s.lines != 1 {
		t.Errorf("Unexpected primitives: %d rects, %d ellipses, %d lines", len(s.rects), len(s.ellipses), s.lines)
	}
	if len(s.texts) != 2 || s.texts[0] != "0" || s.texts[1] != "0" {
		t.Errorf("Unexpected score texts: %v", s.texts)
	}
	if s.ellipses[0] != e.Ball.Rect() {
		t.Errorf("Ball drawn at %+v, want %+v", s.ellipses[0], e.Ball.Rect())
	}
}

func TestRenderGameOver(t *testing.T) {
	e := newTestEngine()
	e.ResetGame(3)
	for i := 0; i < 3; i++ {
		setupExit(e, SideAI)
		e.Update()
	}
	s := &recordingSurface{}

	e.Render(s)

	if len(s.rects) != 0 || len(s.ellipses) != 0 {
		t.Error("Game over screen should not draw paddles or ball")
	}
	if len(s.texts) != 2 || s.texts[0] != "AI Wins!" || s.texts[1] != ReplayPrompt {
		t.Errorf("Unexpected game over texts: %v", s.texts)
	}
}

func TestReplayChoice(t *testing.T) {
	tests := []struct {
		key  rune
		want int
		ok   bool
	}{
		{'3', 3, true},
		{'5', 5, true},
		{'7', 7, true},
		{'4', 0, false},
		{'q', 0, false},
	}
	for _, tt := range tests {
		got, ok := ReplayChoice(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ReplayChoice(%q) = %d, %v", tt.key, got, ok)
		}
	}
}

func TestPlayDeltas(t *testing.T) {
	wall, paddle, score := &countingSound{}, &countingSound{}, &countingSound{}
	sounds := Sounds{Wall: wall, Paddle: paddle, Score: score}

	prev := GameSnapshot{WallBounces: 3, PaddleHits: 2, Points: 1}
	PlayDeltas(prev, GameSnapshot{WallBounces: 4, PaddleHits: 2, Points: 2}, sounds)
	if wall.plays != 1 || paddle.plays != 0 || score.plays != 1 {
		t.Errorf("Unexpected plays wall=%d paddle=%d score=%d", wall.plays, paddle.plays, score.plays)
	}

	// A restarted server resets its counters; nothing should play
	PlayDeltas(prev, GameSnapshot{}, sounds)
	if wall.plays != 1 || score.plays != 1 {
		t.Error("Counter reset should not trigger effects")
	}

	// Missing sounds are skipped
	PlayDeltas(prev, GameSnapshot{WallBounces: 9, PaddleHits: 9, Points: 9}, Sounds{})
}
