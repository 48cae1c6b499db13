// Package render draws game snapshots with gg for the PNG endpoint and the stream.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"pong/internal/game"
)

// Renderer owns the parsed font and hands out gg-backed surfaces of a fixed size.
type Renderer struct {
	width  int
	height int

	fontMu sync.Mutex
	font   *opentype.Font
}

// NewRenderer parses the font at fontPath, falling back to the bundled Go font
// when the path is empty or unreadable.
func NewRenderer(width, height int, fontPath string) (*Renderer, error) {
	f, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{width: width, height: height, font: f}, nil
}

func loadFont(path string) (*opentype.Font, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			f, err := opentype.Parse(data)
			if err == nil {
				log.Printf("✅ Font loaded from: %s", path)
				return f, nil
			}
			log.Printf("⚠️ Failed to parse font %s: %v", path, err)
		} else {
			log.Printf("⚠️ Failed to read font file: %v", err)
		}
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled font: %w", err)
	}
	return f, nil
}

// Size returns the frame dimensions in pixels.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// FrameSize returns the byte length of one RGBA frame.
func (r *Renderer) FrameSize() int {
	return r.width * r.height * 4
}

// NewSurface allocates a drawing context. A Surface is not safe for
// concurrent use; give each goroutine its own.
func (r *Renderer) NewSurface() *Surface {
	return &Surface{
		dc:    gg.NewContext(r.width, r.height),
		r:     r,
		faces: make(map[float64]font.Face),
	}
}

func (r *Renderer) newFace(size float64) font.Face {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create font face (size %.0f): %v", size, err)
		return nil
	}
	return face
}

// Surface implements game.Surface on a gg context.
type Surface struct {
	dc    *gg.Context
	r     *Renderer
	faces map[float64]font.Face // cached per size, never per frame
}

var _ game.Surface = (*Surface)(nil)

// Fill clears the whole surface.
func (s *Surface) Fill(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

// FillRect draws a solid rectangle.
func (s *Surface) FillRect(r game.Rect, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	s.dc.Fill()
}

// FillEllipse draws a solid ellipse inscribed in r.
func (s *Surface) FillEllipse(r game.Rect, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawEllipse(r.X+r.Width/2, r.Y+r.Height/2, r.Width/2, r.Height/2)
	s.dc.Fill()
}

// Line strokes a 1px line.
func (s *Surface) Line(x1, y1, x2, y2 float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.SetLineWidth(1)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

// Text draws str at size points, anchored per align.
func (s *Surface) Text(str string, size, x, y float64, align game.Align, c color.Color) {
	face, ok := s.faces[size]
	if !ok {
		face = s.r.newFace(size)
		s.faces[size] = face
	}
	if face == nil {
		return
	}

	s.dc.SetFontFace(face)
	s.dc.SetColor(c)
	switch align {
	case game.AlignCenter:
		s.dc.DrawStringAnchored(str, x, y, 0.5, 0.5)
	default:
		s.dc.DrawStringAnchored(str, x, y, 0, 1)
	}
}

// Image returns the backing image.
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// Draw renders snap onto the surface.
func (s *Surface) Draw(snap game.GameSnapshot) {
	game.Draw(s, snap)
}

// CopyRGBA copies the surface pixels into dst as tightly packed RGBA.
func (s *Surface) CopyRGBA(dst []byte) {
	img := s.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Rect.Dx()*4 {
		copy(dst, rgba.Pix)
		return
	}

	// Fallback for other image types
	bounds := img.Bounds()
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if idx+3 >= len(dst) {
				return
			}
			r, g, b, a := img.At(x, y).RGBA()
			dst[idx] = uint8(r >> 8)
			dst[idx+1] = uint8(g >> 8)
			dst[idx+2] = uint8(b >> 8)
			dst[idx+3] = uint8(a >> 8)
			idx += 4
		}
	}
}

// EncodePNG writes the surface as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

// PNG renders snap on a fresh surface and writes it as PNG.
func (r *Renderer) PNG(w io.Writer, snap game.GameSnapshot) error {
	s := r.NewSurface()
	s.Draw(snap)
	return s.EncodePNG(w)
}
