package telemetry

import (
	"testing"
	"time"

	"github.com/pthm-cable/flappy/game"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.Record(game.PhaseStep, 300*time.Microsecond)
		pc.Record(game.PhaseDraw, 100*time.Microsecond)
	}

	stats := pc.Stats()

	if stats.AvgTickDuration != 400*time.Microsecond {
		t.Errorf("avg tick = %v, want 400µs", stats.AvgTickDuration)
	}
	if stats.PhaseAvg[game.PhaseStep] != 300*time.Microsecond {
		t.Errorf("step avg = %v", stats.PhaseAvg[game.PhaseStep])
	}
	if pct := stats.PhasePct[game.PhaseDraw]; pct < 24.9 || pct > 25.1 {
		t.Errorf("draw pct = %v, want 25", pct)
	}
	if stats.TicksPerSecond != 2500 {
		t.Errorf("ticks/sec = %v, want 2500", stats.TicksPerSecond)
	}
	if pc.TotalTicks() != 5 {
		t.Errorf("total ticks = %d", pc.TotalTicks())
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 5; i++ {
		pc.Record(game.PhaseStep, time.Millisecond)
	}
	// Newer samples push the old ones out of the window.
	for i := 0; i < 5; i++ {
		pc.Record(game.PhaseStep, 3*time.Millisecond)
	}

	stats := pc.Stats()
	if stats.AvgTickDuration != 3*time.Millisecond {
		t.Errorf("avg tick = %v, want 3ms", stats.AvgTickDuration)
	}
	if stats.MinTickDuration != 3*time.Millisecond || stats.MaxTickDuration != 3*time.Millisecond {
		t.Errorf("min=%v max=%v", stats.MinTickDuration, stats.MaxTickDuration)
	}
	if pc.TotalTicks() != 10 {
		t.Errorf("total ticks = %d", pc.TotalTicks())
	}
}

func TestPerfCollector_DrawWithoutStep(t *testing.T) {
	pc := NewPerfCollector(3)
	pc.Record(game.PhaseDraw, time.Millisecond)

	stats := pc.Stats()
	if stats.AvgTickDuration != time.Millisecond {
		t.Errorf("avg tick = %v", stats.AvgTickDuration)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}

	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("expected FPS in (0, 70] with 16ms frame time, got %v", stats.FPS)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.Record(game.PhaseStep, 750*time.Microsecond)
	pc.Record(game.PhaseDraw, 250*time.Microsecond)

	row := pc.Stats().ToCSV(12)
	if row.Generation != 12 || row.AvgTickUS != 1000 {
		t.Errorf("row = %+v", row)
	}
	if row.StepPct != 75 || row.DrawPct != 25 {
		t.Errorf("pct step=%v draw=%v", row.StepPct, row.DrawPct)
	}
}
