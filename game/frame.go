package game

import "github.com/pthm-cable/flappy/components"

// BirdView is one bird as a renderer sees it.
type BirdView struct {
	MemberID int
	Body     components.Body
	Plumage  components.Plumage
}

// Frame is an immutable snapshot of one tick for drawing.
type Frame struct {
	Birds      []BirdView
	Pipes      []Pipe
	Score      int
	Tick       int
	Generation int
	Alive      int
	Width      float64
	Height     float64
}

// Renderer draws frames. It is called once per tick.
type Renderer interface {
	Draw(Frame)
}

// AbortSource is polled once per tick; it must not block.
type AbortSource interface {
	AbortRequested() bool
}
