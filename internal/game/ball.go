package game

import (
	"math/rand"
)

// Ball is the moving circle bouncing between the walls and the paddles.
// X and Y are the centre.
type Ball struct {
	X, Y   float64
	DX, DY float64
	Radius float64

	speed        float64
	screenWidth  float64
	screenHeight float64
	rng          *rand.Rand
}

// NewBall creates a ball centred on the screen and launched in a random direction.
func NewBall(radius, speed, screenWidth, screenHeight float64, rng *rand.Rand) *Ball {
	b := &Ball{
		Radius:       radius,
		speed:        speed,
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		rng:          rng,
	}
	b.Reset()
	return b
}

// Move advances the ball by its velocity.
// Returns true when the ball bounced off the top or bottom wall.
func (b *Ball) Move() bool {
	b.X += b.DX
	b.Y += b.DY

	if b.Y-b.Radius <= 0 && b.DY < 0 {
		b.DY = -b.DY
		return true
	}
	if b.Y+b.Radius >= b.screenHeight && b.DY > 0 {
		b.DY = -b.DY
		return true
	}
	return false
}

// CheckCollision reflects the horizontal velocity when the ball overlaps a paddle
// it is travelling toward. Returns true on a hit.
func (b *Ball) CheckCollision(player, ai *Paddle) bool {
	box := b.Rect()

	if b.DX < 0 && box.Overlaps(player.Rect()) {
		b.DX = -b.DX
		return true
	}
	if b.DX > 0 && box.Overlaps(ai.Rect()) {
		b.DX = -b.DX
		return true
	}
	return false
}

// Reset recentres the ball and picks a new diagonal direction.
func (b *Ball) Reset() {
	b.X = b.screenWidth / 2
	b.Y = b.screenHeight / 2
	b.DX = b.speed * b.randomSign()
	b.DY = b.speed * b.randomSign()
}

// Rect returns the ball's bounding box.
func (b *Ball) Rect() Rect {
	return Rect{
		X:      b.X - b.Radius,
		Y:      b.Y - b.Radius,
		Width:  b.Radius * 2,
		Height: b.Radius * 2,
	}
}

func (b *Ball) randomSign() float64 {
	if b.rng.Intn(2) == 0 {
		return -1
	}
	return 1
}
