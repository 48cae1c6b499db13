// Package desktop runs the engine in a native window through ebiten.
package desktop

import (
	"log"

	"pong/internal/game"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Keys is the keyboard as the game sees it.
type Keys interface {
	// Held returns the paddle keys currently down.
	Held() game.InputState
	// Replay returns a replay key pressed this frame.
	Replay() (rune, bool)
	// Quit reports whether the exit key was pressed this frame.
	Quit() bool
}

// ebitenKeys reads W/S (or the arrows), the digit row and ESC.
type ebitenKeys struct{}

func (ebitenKeys) Held() game.InputState {
	return game.InputState{
		Up:   ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp),
		Down: ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown),
	}
}

var replayKeys = map[ebiten.Key]rune{
	ebiten.KeyDigit3:  '3',
	ebiten.KeyDigit5:  '5',
	ebiten.KeyDigit7:  '7',
	ebiten.KeyNumpad3: '3',
	ebiten.KeyNumpad5: '5',
	ebiten.KeyNumpad7: '7',
}

func (ebitenKeys) Replay() (rune, bool) {
	for k, r := range replayKeys {
		if inpututil.IsKeyJustPressed(k) {
			return r, true
		}
	}
	return 0, false
}

func (ebitenKeys) Quit() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyEscape)
}

// Game adapts an Engine to ebiten.Game. ebiten calls Update at TPS on a
// single goroutine, so the engine needs no locking here.
type Game struct {
	engine  *game.Engine
	surface *Surface
	keys    Keys
	width   int
	height  int
}

// NewGame wraps engine. keys nil reads the real keyboard.
func NewGame(engine *game.Engine, surface *Surface, keys Keys) *Game {
	if keys == nil {
		keys = ebitenKeys{}
	}
	w, h := engine.Size()
	return &Game{
		engine:  engine,
		surface: surface,
		keys:    keys,
		width:   int(w),
		height:  int(h),
	}
}

// Update runs one frame: input then physics while playing, replay keys on
// the game-over screen. ESC ends RunGame with ebiten.Termination.
func (g *Game) Update() error {
	if g.keys.Quit() {
		log.Println("👋 Exit requested")
		return ebiten.Termination
	}

	if g.engine.GameOver {
		if key, ok := g.keys.Replay(); ok {
			if score, ok := game.ReplayChoice(key); ok {
				g.engine.ResetGame(score)
				log.Printf("🔄 New match: first to %d", score)
			}
		}
		return nil
	}

	g.engine.HandleInput(g.keys.Held())
	if res := g.engine.Update(); res.GameOver {
		log.Printf("🏆 %s wins %d-%d", g.engine.Winner, g.engine.PlayerScore, g.engine.AIScore)
	}
	return nil
}

// Draw renders the current frame onto screen.
func (g *Game) Draw(screen *ebiten.Image) {
	g.surface.SetTarget(screen)
	g.engine.Render(g.surface)
}

// Layout keeps the logical playfield size regardless of the window size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

// Run opens the window and blocks until it is closed or ESC is pressed.
func Run(g *Game, title string, tps int) error {
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetTPS(tps)

	err := ebiten.RunGame(g)
	if err == ebiten.Termination {
		return nil
	}
	return err
}
