package game

import (
	"math"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// Fate is the outcome of one bird's tick.
type Fate uint8

const (
	FateAlive  Fate = iota
	FateBounds      // left the playfield vertically
	FatePipe        // hit a pipe column
	FateCapped      // retired by the score cap
)

// String returns the CSV/log name for a fate.
func (f Fate) String() string {
	switch f {
	case FateAlive:
		return "alive"
	case FateBounds:
		return "bounds"
	case FatePipe:
		return "pipe"
	case FateCapped:
		return "capped"
	default:
		return "unknown"
	}
}

// Dead reports whether the fate carries the death penalty.
func (f Fate) Dead() bool {
	return f == FateBounds || f == FatePipe
}

// Policy decides per-bird death and the round-level score cap.
// All methods are pure.
type Policy struct {
	ScreenHeight float64
	Stop         bool // enable score-cap retirement
	ScoreCap     int
}

// PolicyFromConfig builds a policy; stop toggles the score cap.
func PolicyFromConfig(cfg *config.Config, stop bool) Policy {
	return Policy{
		ScreenHeight: cfg.Derived.ScreenH,
		Stop:         stop,
		ScoreCap:     cfg.Fitness.ScoreCap,
	}
}

// OutOfBounds reports a bird touching the ceiling or poking below the floor.
func (p Policy) OutOfBounds(b components.Body) bool {
	return b.Y <= 0 || b.Bottom() > p.ScreenHeight
}

// HitsPipe reports a bird whose trailing edge lies within the pipe's
// horizontal span while it is outside the gap band. Both bounds are
// inclusive, so a bird flush with a gap edge collides.
func (p Policy) HitsPipe(b components.Body, pipe Pipe) bool {
	upper, lower := pipe.Upper(), pipe.Lower()
	edge := b.Right()
	if edge < upper.Left() || edge > upper.Left()+pipe.Geom.Width {
		return false
	}
	return b.Y <= upper.Bottom() || b.Bottom() >= lower.Top()
}

// Judge returns FateBounds, FatePipe or FateAlive for a moved bird.
func (p Policy) Judge(b components.Body, pipe Pipe) Fate {
	if p.OutOfBounds(b) {
		return FateBounds
	}
	if p.HitsPipe(b, pipe) {
		return FatePipe
	}
	return FateAlive
}

// Capped reports whether survivors should be retired at this score.
func (p Policy) Capped(score int) bool {
	return p.Stop && score > p.ScoreCap
}

// NumInputs is the length of the sensor vector handed to deciders.
const NumInputs = 4

// Sense builds the decider input vector. The order is a fixed contract
// with evolved networks:
// y, |y - upper bottom|, |y - lower top|, |x - upper left|.
func Sense(b components.Body, pipe Pipe, dst []float64) []float64 {
	upper, lower := pipe.Upper(), pipe.Lower()
	dst = append(dst[:0],
		b.Y,
		math.Abs(b.Y-upper.Bottom()),
		math.Abs(b.Y-lower.Top()),
		math.Abs(b.X-upper.Left()),
	)
	return dst
}
