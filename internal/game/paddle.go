package game

// Paddle is a vertical bar that only moves along the y axis.
type Paddle struct {
	X, Y          float64
	Width, Height float64
}

// NewPaddle creates a paddle with its top-left corner at (x, y).
func NewPaddle(x, y, width, height float64) *Paddle {
	return &Paddle{X: x, Y: y, Width: width, Height: height}
}

// Move shifts the paddle by dy and keeps it inside [0, screenHeight-Height].
func (p *Paddle) Move(dy, screenHeight float64) {
	p.Y += dy
	p.clamp(screenHeight)
}

// AutoTrack moves the paddle centre toward the ball's vertical position.
// A positive speed caps the per-tick step; speed <= 0 snaps straight to the ball.
func (p *Paddle) AutoTrack(ball *Ball, screenHeight, speed float64) {
	diff := ball.Y - p.Rect().CenterY()

	if speed > 0 {
		if diff > speed {
			diff = speed
		} else if diff < -speed {
			diff = -speed
		}
	}

	p.Move(diff, screenHeight)
}

// Rect returns the paddle's bounding box.
func (p *Paddle) Rect() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

func (p *Paddle) clamp(screenHeight float64) {
	maxY := screenHeight - p.Height
	if p.Y > maxY {
		p.Y = maxY
	}
	if p.Y < 0 {
		p.Y = 0
	}
}
