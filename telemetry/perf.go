package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flappy/game"
)

// trackedPhases are the tick phases broken out in stats, in index order.
var trackedPhases = [...]string{game.PhaseStep, game.PhaseDraw}

// tickTiming is one tick's wall time split by phase. Untracked phases only
// count towards total.
type tickTiming struct {
	total  time.Duration
	phases [len(trackedPhases)]time.Duration
}

// PerfCollector keeps tick timings for the last window ticks. It implements
// game.PhaseRecorder: a step phase opens a new tick and later phases of the
// same tick are added to it.
type PerfCollector struct {
	window []tickTiming
	next   int // slot the next tick is written to
	filled int
	ticks  int64

	lastFrame time.Time
	frameGap  time.Duration
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{window: make([]tickTiming, window)}
}

// Record implements game.PhaseRecorder.
func (p *PerfCollector) Record(phase string, d time.Duration) {
	if phase == game.PhaseStep || p.filled == 0 {
		p.window[p.next] = tickTiming{}
		p.next = (p.next + 1) % len(p.window)
		p.filled = min(p.filled+1, len(p.window))
		p.ticks++
	}
	cur := &p.window[(p.next+len(p.window)-1)%len(p.window)]
	cur.total += d
	for i, name := range trackedPhases {
		if name == phase {
			cur.phases[i] += d
		}
	}
}

// RecordFrame marks the end of a drawn frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frameGap = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// TotalTicks returns the number of ticks recorded since creation.
func (p *PerfCollector) TotalTicks() int64 { return p.ticks }

// PerfStats summarises the current window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg map[string]time.Duration // mean per tick, by phase
	PhasePct map[string]float64       // share of the mean tick, 0-100

	TicksPerSecond float64

	FrameDuration time.Duration // last frame-to-frame gap, graphics only
	FPS           float64
}

// Stats computes the window summary.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration, len(trackedPhases)),
		PhasePct:      make(map[string]float64, len(trackedPhases)),
		FrameDuration: p.frameGap,
	}
	if p.frameGap > 0 {
		s.FPS = float64(time.Second) / float64(p.frameGap)
	}
	if p.filled == 0 {
		return s
	}

	totals := make([]float64, p.filled)
	perPhase := make([][]float64, len(trackedPhases))
	for i := range perPhase {
		perPhase[i] = make([]float64, p.filled)
	}
	for i, t := range p.window[:p.filled] {
		totals[i] = float64(t.total)
		for j, d := range t.phases {
			perPhase[j][i] = float64(d)
		}
	}

	avg := stat.Mean(totals, nil)
	s.AvgTickDuration = time.Duration(avg)
	s.MinTickDuration = time.Duration(floats.Min(totals))
	s.MaxTickDuration = time.Duration(floats.Max(totals))
	if avg > 0 {
		s.TicksPerSecond = float64(time.Second) / avg
	}
	for j, name := range trackedPhases {
		mean := stat.Mean(perPhase[j], nil)
		s.PhaseAvg[name] = time.Duration(mean)
		if avg > 0 {
			s.PhasePct[name] = mean / avg * 100
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for _, phase := range trackedPhases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation  int     `csv:"generation"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	MinTickUS   int64   `csv:"min_tick_us"`
	MaxTickUS   int64   `csv:"max_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	FPS         float64 `csv:"fps"`
	StepPct     float64 `csv:"step_pct"`
	DrawPct     float64 `csv:"draw_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:  generation,
		AvgTickUS:   s.AvgTickDuration.Microseconds(),
		MinTickUS:   s.MinTickDuration.Microseconds(),
		MaxTickUS:   s.MaxTickDuration.Microseconds(),
		TicksPerSec: s.TicksPerSecond,
		FPS:         s.FPS,
		StepPct:     s.PhasePct[game.PhaseStep],
		DrawPct:     s.PhasePct[game.PhaseDraw],
	}
}
