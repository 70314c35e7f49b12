// Package renderer owns the raylib window: it draws frames, paces ticks
// through the target frame rate and reports when the user wants out.
package renderer

import (
	"context"
	"errors"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/telemetry"
	"github.com/pthm-cable/flappy/ui"
)

// errWindowClosed is returned by Wait when the window closes while paused.
var errWindowClosed = errors.New("window closed")

// Window is the graphical rendering context. It implements game.Renderer,
// game.AbortSource, game.Pacer and game.RateSetter. Open and every other
// method must run on the main goroutine.
type Window struct {
	// Perf, when set, receives one frame mark per drawn frame.
	Perf *telemetry.PerfCollector

	cfg  *config.Config
	mode string
	rate int

	sky      *Sky
	hud      *ui.HUD
	speed    *ui.SpeedControl
	sensors  *ui.SensorPanel
	inspect  func([]float64) ([]float64, error)
	last     game.Frame
	hasFrame bool
}

// Open creates the window. Close must be called when done.
func Open(cfg *config.Config, title, mode string) *Window {
	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), title)
	rl.SetExitKey(0) // Escape is handled by AbortRequested

	w := &Window{
		cfg:     cfg,
		mode:    mode,
		sky:     NewSky(int32(cfg.Screen.Width), int32(cfg.Screen.Height)),
		hud:     ui.NewHUD(),
		speed:   ui.NewSpeedControl(int32(cfg.Screen.Width)-250, 10, 240),
		sensors: ui.NewSensorPanel(10, 70, 220),
	}
	w.SetTickRate(cfg.Screen.TargetFPS)
	return w
}

// Close destroys the window.
func (w *Window) Close() {
	rl.CloseWindow()
}

// SetTickRate maps the tick rate onto the frame rate. 0 is uncapped.
func (w *Window) SetTickRate(hz int) {
	w.rate = hz
	rl.SetTargetFPS(int32(hz))
}


// Inspect sets the decider whose output the sensor panel shows.
func (w *Window) Inspect(decide func([]float64) ([]float64, error)) {
	w.inspect = decide
}

// AbortRequested reports a window close or Escape. It never blocks.
func (w *Window) AbortRequested() bool {
	return rl.WindowShouldClose() || rl.IsKeyPressed(rl.KeyEscape)
}

// Wait holds the round while the pause toggle is on, redrawing the last
// frame. Frame pacing itself happens in EndDrawing.
func (w *Window) Wait(ctx context.Context) error {
	for w.speed.Paused() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.AbortRequested() {
			return errWindowClosed
		}
		w.draw(w.last)
	}
	return ctx.Err()
}

// Draw implements game.Renderer.
func (w *Window) Draw(f game.Frame) {
	w.last, w.hasFrame = f, true
	w.draw(f)
}

func (w *Window) draw(f game.Frame) {
	rl.BeginDrawing()
	w.sky.Draw()

	if w.hasFrame {
		for _, p := range f.Pipes {
			drawPipe(p)
		}
		for _, b := range f.Birds {
			drawBird(b, float32(w.cfg.Bird.Size))
		}
		w.sensors.Draw(f, w.inspect, w.cfg.Bird.JumpThreshold)
		w.hud.Draw(ui.HUDFromFrame(f, w.mode, w.rate))
	}

	if rate := w.speed.Draw(w.rate); rate != w.rate {
		w.SetTickRate(rate)
	}
	w.hud.DrawControls(int32(w.cfg.Screen.Height), "[Space] Jump  [Esc] Quit")
	rl.EndDrawing()
	if w.Perf != nil {
		w.Perf.RecordFrame()
	}
}

func drawPipe(p game.Pipe) {
	for _, r := range []game.Rect{p.Upper(), p.Lower()} {
		rect := rl.Rectangle{X: float32(r.X), Y: float32(r.Y), Width: float32(r.W), Height: float32(r.H)}
		rl.DrawRectangleRec(rect, pipeBody)
		rl.DrawRectangleLinesEx(rect, 4, pipeEdge)
	}
}

func drawBird(b game.BirdView, size float32) {
	c := plumageColor(b.Plumage)
	rl.DrawRectangle(int32(b.Body.X), int32(b.Body.Y), int32(size), int32(size), c)
	rl.DrawRectangleLines(int32(b.Body.X), int32(b.Body.Y), int32(size), int32(size), rl.Black)
}

func plumageColor(p components.Plumage) rl.Color {
	return rl.Color{R: p.R, G: p.G, B: p.B, A: 255}
}

var (
	pipeBody = rl.Color{R: 90, G: 180, B: 60, A: 255}
	pipeEdge = rl.Color{R: 40, G: 100, B: 30, A: 255}
)
