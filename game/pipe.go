package game

import (
	"math/rand"

	"github.com/pthm-cable/flappy/config"
)

// Rect is an axis-aligned rectangle in screen coordinates (y grows downward).
type Rect struct {
	X, Y, W, H float64
}

// Left returns the left edge.
func (r Rect) Left() float64 { return r.X }

// Top returns the top edge.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// PipeGeometry holds the fixed dimensions shared by every pipe.
type PipeGeometry struct {
	Width        float64
	Gap          float64
	ScreenHeight float64
	MinGapTop    int
	MaxGapTop    int
}

// GeometryFromConfig extracts pipe geometry from a loaded config.
func GeometryFromConfig(cfg *config.Config) PipeGeometry {
	return PipeGeometry{
		Width:        cfg.Pipe.Width,
		Gap:          cfg.Pipe.Gap,
		ScreenHeight: cfg.Derived.ScreenH,
		MinGapTop:    cfg.Derived.MinGapTop,
		MaxGapTop:    cfg.Derived.MaxGapTop,
	}
}

// Pipe is a column pair with a passable gap, scrolling leftward.
type Pipe struct {
	X      float64
	GapTop float64
	Geom   PipeGeometry
}

// NewPipe creates a pipe at x with its gap top drawn from gaps.
func NewPipe(x float64, geom PipeGeometry, gaps GapSampler) Pipe {
	return Pipe{
		X:      x,
		GapTop: float64(gaps.SampleGap(geom.MinGapTop, geom.MaxGapTop)),
		Geom:   geom,
	}
}

// Upper returns the column above the gap: [0, GapTop].
func (p Pipe) Upper() Rect {
	return Rect{X: p.X, Y: 0, W: p.Geom.Width, H: p.GapTop}
}

// Lower returns the column below the gap: [GapTop+Gap, ScreenHeight].
func (p Pipe) Lower() Rect {
	top := p.GapTop + p.Geom.Gap
	return Rect{X: p.X, Y: top, W: p.Geom.Width, H: p.Geom.ScreenHeight - top}
}

// Advance scrolls the pipe left by speed.
func (p *Pipe) Advance(speed float64) {
	p.X -= speed
}

// Offscreen reports whether the pipe has fully left the screen.
func (p Pipe) Offscreen() bool {
	return p.X <= -p.Geom.Width
}

// GapSampler picks a gap top in [min, max], both inclusive.
type GapSampler interface {
	SampleGap(min, max int) int
}

// RandomGaps draws gap tops uniformly from a seeded rng.
type RandomGaps struct {
	rng *rand.Rand
}

// NewRandomGaps creates a sampler seeded with seed.
func NewRandomGaps(seed int64) *RandomGaps {
	return &RandomGaps{rng: rand.New(rand.NewSource(seed))}
}

// SampleGap returns a uniform integer in [min, max].
func (g *RandomGaps) SampleGap(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.rng.Intn(max-min+1)
}

// FixedGap always returns the same gap top, clamped into range.
type FixedGap int

// SampleGap returns the fixed value clamped to [min, max].
func (g FixedGap) SampleGap(min, max int) int {
	v := int(g)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ObstacleStream supplies the obstacles a round is played against.
type ObstacleStream interface {
	// Active returns the obstacle birds sense and collide with.
	Active() Pipe
	// Pipes returns every obstacle on screen, for rendering.
	Pipes() []Pipe
	// Advance scrolls all obstacles one tick.
	Advance()
	// Recycle replaces passed obstacles and reports whether one was passed.
	Recycle() bool
	// Score returns the number of obstacles passed so far.
	Score() int
}

// PipeStream keeps a single active pipe and replaces it once it scrolls
// past the left edge. Every replacement counts one point.
type PipeStream struct {
	active   Pipe
	geom     PipeGeometry
	gaps     GapSampler
	speed    float64
	respawnX float64
	score    int
}

// NewPipeStream creates a stream whose first pipe sits at the right screen edge.
func NewPipeStream(cfg *config.Config, gaps GapSampler) *PipeStream {
	geom := GeometryFromConfig(cfg)
	return &PipeStream{
		active:   NewPipe(cfg.Derived.SpawnX, geom, gaps),
		geom:     geom,
		gaps:     gaps,
		speed:    cfg.Pipe.Speed,
		respawnX: cfg.Derived.RespawnX,
	}
}

// Active returns the current pipe.
func (s *PipeStream) Active() Pipe {
	return s.active
}

// Pipes returns the current pipe as a one-element slice.
func (s *PipeStream) Pipes() []Pipe {
	return []Pipe{s.active}
}

// Advance scrolls the active pipe.
func (s *PipeStream) Advance() {
	s.active.Advance(s.speed)
}

// Recycle swaps in a fresh pipe one screen plus one pipe width to the
// right once the active pipe is offscreen.
func (s *PipeStream) Recycle() bool {
	if !s.active.Offscreen() {
		return false
	}
	s.score++
	s.active = NewPipe(s.respawnX, s.geom, s.gaps)
	return true
}

// Score returns the number of pipes passed.
func (s *PipeStream) Score() int {
	return s.score
}
