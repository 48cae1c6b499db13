package desktop

import (
	"bytes"
	"fmt"
	"image/color"
	"log"
	"os"

	"pong/internal/game"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"
)

// Surface implements game.Surface on an ebiten image.
type Surface struct {
	dst    *ebiten.Image
	source *text.GoTextFaceSource
	faces  map[float64]*text.GoTextFace
}

// NewSurface loads the TTF at fontPath, falling back to Go Regular when the
// path is empty or unreadable.
func NewSurface(fontPath string) (*Surface, error) {
	data := goregular.TTF
	if fontPath != "" {
		if b, err := os.ReadFile(fontPath); err == nil {
			data = b
		} else {
			log.Printf("⚠️ Font %s unavailable, using Go Regular: %v", fontPath, err)
		}
	}

	source, err := text.NewGoTextFaceSource(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Surface{source: source, faces: make(map[float64]*text.GoTextFace)}, nil
}

// SetTarget selects the image the next draw calls paint on.
func (s *Surface) SetTarget(dst *ebiten.Image) {
	s.dst = dst
}

func (s *Surface) Fill(c color.Color) {
	s.dst.Fill(c)
}

func (s *Surface) FillRect(r game.Rect, c color.Color) {
	vector.DrawFilledRect(s.dst, float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height), c, false)
}

// FillEllipse draws the circle inscribed in r. The game only draws round balls.
func (s *Surface) FillEllipse(r game.Rect, c color.Color) {
	cx, cy := r.X+r.Width/2, r.Y+r.Height/2
	vector.DrawFilledCircle(s.dst, float32(cx), float32(cy), float32(r.Width/2), c, true)
}

func (s *Surface) Line(x1, y1, x2, y2 float64, c color.Color) {
	vector.StrokeLine(s.dst, float32(x1), float32(y1), float32(x2), float32(y2), 1, c, false)
}

func (s *Surface) Text(str string, size, x, y float64, align game.Align, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	if align == game.AlignCenter {
		op.PrimaryAlign = text.AlignCenter
		op.SecondaryAlign = text.AlignCenter
	}
	text.Draw(s.dst, str, s.face(size), op)
}

func (s *Surface) face(size float64) *text.GoTextFace {
	if f, ok := s.faces[size]; ok {
		return f
	}
	f := &text.GoTextFace{Source: s.source, Size: size}
	s.faces[size] = f
	return f
}
