// Package game implements the obstacle stream, collision policy, round
// evaluator and the generation loop that feeds it.
package game

import (
	"context"
	"time"

	"github.com/pthm-cable/flappy/config"
)

// Pacer rate-limits ticks. Wait blocks until the next tick is due.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RateSetter is implemented by pacers whose tick rate can change between rounds.
type RateSetter interface {
	SetTickRate(hz int)
}

// TickerPacer paces ticks with a time.Ticker. A rate of 0 never waits.
type TickerPacer struct {
	ticker *time.Ticker
	hz     int
}

// NewTickerPacer creates a pacer running at hz ticks per second.
func NewTickerPacer(hz int) *TickerPacer {
	p := &TickerPacer{}
	p.SetTickRate(hz)
	return p
}

// SetTickRate changes the tick rate, clamped to [0, config.MaxTickRate].
func (p *TickerPacer) SetTickRate(hz int) {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
	hz = min(max(hz, 0), config.MaxTickRate)
	p.hz = hz
	if hz > 0 {
		p.ticker = time.NewTicker(time.Second / time.Duration(hz))
	}
}

// TickRate returns the current rate.
func (p *TickerPacer) TickRate() int { return p.hz }

// Wait blocks until the next tick or until ctx is done.
func (p *TickerPacer) Wait(ctx context.Context) error {
	if p.ticker == nil {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (p *TickerPacer) Stop() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}

// PhaseRecorder receives per-tick phase timings.
type PhaseRecorder interface {
	Record(phase string, d time.Duration)
}

// Phase names reported to a PhaseRecorder.
const (
	PhaseStep = "step"
	PhaseDraw = "draw"
)

// Runner drives a round to completion: poll abort, wait, step, draw.
// Any field may be nil.
type Runner struct {
	Renderer Renderer
	Abort    AbortSource
	Pacer    Pacer
	Perf     PhaseRecorder
	// OnTick is called after every completed tick, before drawing.
	OnTick func(r *Round)
}

// Play runs round until it ends. It returns ErrAborted if the abort source
// fires or ctx is cancelled, and the round's error if a decider fails.
func (rn *Runner) Play(ctx context.Context, round *Round) error {
	for round.State() == RoundRunning {
		if ctx.Err() != nil || (rn.Abort != nil && rn.Abort.AbortRequested()) {
			return ErrAborted
		}
		if rn.Pacer != nil {
			if err := rn.Pacer.Wait(ctx); err != nil {
				return ErrAborted
			}
		}
		start := time.Now()
		if err := round.Step(ctx); err != nil {
			return err
		}
		if rn.Perf != nil {
			rn.Perf.Record(PhaseStep, time.Since(start))
		}
		if rn.OnTick != nil {
			rn.OnTick(round)
		}
		if rn.Renderer != nil {
			start = time.Now()
			rn.Renderer.Draw(round.Frame())
			if rn.Perf != nil {
				rn.Perf.Record(PhaseDraw, time.Since(start))
			}
		}
	}
	return nil
}

func (rn *Runner) setTickRate(hz int) {
	if rs, ok := rn.Pacer.(RateSetter); ok {
		rs.SetTickRate(hz)
	}
}
