package game

import (
	"fmt"
	"image/color"
)

// Align selects how Text positions its string relative to (x, y).
type Align int

const (
	AlignTopLeft Align = iota // (x, y) is the top-left corner of the text
	AlignCenter               // (x, y) is the centre of the text
)

// Surface is the display the game draws onto.
// The server backs it with a gg context, the desktop client with an ebiten image.
type Surface interface {
	Fill(c color.Color)
	FillRect(r Rect, c color.Color)
	FillEllipse(r Rect, c color.Color)
	Line(x1, y1, x2, y2 float64, c color.Color)
	Text(s string, size, x, y float64, align Align, c color.Color)
}

var (
	ColorBackground = color.RGBA{0, 0, 0, 255}
	ColorForeground = color.RGBA{255, 255, 255, 255}
)

// Font sizes used by Draw.
const (
	ScoreFontSize = 30
	WinFontSize   = 50
	ReplayPrompt  = "Play Again: Best of (3), (5), (7) or (ESC) to Exit"
)

// Draw renders one frame of snap onto s.
func Draw(s Surface, snap GameSnapshot) {
	s.Fill(ColorBackground)

	w, h := snap.Width, snap.Height

	if snap.GameOver {
		s.Text(fmt.Sprintf("%s Wins!", snap.Winner), WinFontSize, w/2, h/2-50, AlignCenter, ColorForeground)
		s.Text(ReplayPrompt, ScoreFontSize, w/2, h/2+20, AlignCenter, ColorForeground)
		return
	}

	s.FillRect(snap.Player.Rect(), ColorForeground)
	s.FillRect(snap.AI.Rect(), ColorForeground)
	s.FillEllipse(snap.Ball.Rect(), ColorForeground)
	s.Line(w/2, 0, w/2, h, ColorForeground)

	s.Text(fmt.Sprint(snap.PlayerScore), ScoreFontSize, w/4, 20, AlignTopLeft, ColorForeground)
	s.Text(fmt.Sprint(snap.AIScore), ScoreFontSize, w*3/4, 20, AlignTopLeft, ColorForeground)
}
