package components

// Body is a bird's collision box. X is fixed for the bird's lifetime;
// only Y moves, and only by flat per-tick steps.
type Body struct {
	X, Y float64 // top-left corner
	Size float64 // square edge length
}

// Advance drops the body by one gravity step.
func (b *Body) Advance(gravity float64) {
	b.Y += gravity
}

// Jump lifts the body by one jump step.
func (b *Body) Jump(step float64) {
	b.Y -= step
}

// Right returns the trailing edge used for pipe overlap tests.
func (b Body) Right() float64 {
	return b.X + b.Size
}

// Bottom returns the lower edge.
func (b Body) Bottom() float64 {
	return b.Y + b.Size
}
