package game

import (
	"math/rand"
	"testing"
)

func TestPaddleMoveClamps(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		dy    float64
		want  float64
	}{
		{"free move down", 100, 10, 110},
		{"free move up", 100, -10, 90},
		{"clamp at top", 5, -10, 0},
		{"clamp at bottom", 495, 10, 500},
		{"already at bottom", 500, 10, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaddle(10, tt.start, 10, 100)
			p.Move(tt.dy, 600)
			if p.Y != tt.want {
				t.Errorf("Expected Y %v, got %v", tt.want, p.Y)
			}
		})
	}
}

func TestPaddleAutoTrack(t *testing.T) {
	ball := NewBall(7, 7, 800, 600, rand.New(rand.NewSource(1)))

	tests := []struct {
		name  string
		start float64
		ballY float64
		speed float64
		want  float64
	}{
		{"step down capped", 100, 500, 6, 106},
		{"step up capped", 300, 10, 6, 294},
		{"small diff not overshot", 100, 152, 6, 102},
		{"direct follow", 100, 400, 0, 350},
		{"direct follow clamps", 100, 590, 0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaddle(780, tt.start, 10, 100)
			ball.Y = tt.ballY
			p.AutoTrack(ball, 600, tt.speed)
			if p.Y != tt.want {
				t.Errorf("Expected Y %v, got %v", tt.want, p.Y)
			}
		})
	}
}

func TestRectOverlaps(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"inside", Rect{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"partial", Rect{X: 8, Y: 8, Width: 5, Height: 5}, true},
		{"touching edge", Rect{X: 10, Y: 0, Width: 5, Height: 5}, false},
		{"apart", Rect{X: 20, Y: 20, Width: 5, Height: 5}, false},
	}

	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.b.Overlaps(a); got != tt.want {
			t.Errorf("%s: overlap should be symmetric", tt.name)
		}
	}
}
