package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Mode       string // "training", "replay" or "manual"
	Generation int
	Score      int
	Alive      int
	Tick       int
	TickRate   int
	FPS        int32

	ScreenWidth int32
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// HUDFromFrame fills the round fields of the HUD from a frame.
func HUDFromFrame(f game.Frame, mode string, tickRate int) HUDData {
	return HUDData{
		Mode:       mode,
		Generation: f.Generation,
		Score:      f.Score,
		Alive:      f.Alive,
		Tick:       f.Tick,
		TickRate:   tickRate,
		FPS:        rl.GetFPS(),

		ScreenWidth: int32(f.Width),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	score := fmt.Sprintf("%d", data.Score)
	rl.DrawText(score, data.ScreenWidth/2-rl.MeasureText(score, 60)/2, 60, 60, rl.White)

	rl.DrawText(fmt.Sprintf("Gen: %d | Alive: %d", data.Generation, data.Alive), 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Rate: %d | FPS: %d | %s", data.Tick, data.TickRate, data.FPS, data.Mode),
		10, 35, 16, rl.LightGray,
	)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// SensorPanel shows the sensor vector of one bird against the active pipe.
type SensorPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	inputs   []float64
}

// NewSensorPanel creates a sensor panel at the given position.
func NewSensorPanel(x, y, width int32) *SensorPanel {
	return &SensorPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		inputs:   make([]float64, 0, game.NumInputs),
	}
}

// Draw renders the inputs of the first live bird and whether it would jump
// at the given threshold. Nothing is drawn when no bird is alive.
func (p *SensorPanel) Draw(f game.Frame, decide func([]float64) ([]float64, error), threshold float64) {
	if len(f.Birds) == 0 || len(f.Pipes) == 0 {
		return
	}
	r := p.renderer
	descs := neural.BrainInputDescriptors()
	height := int32(len(descs)+2)*(r.Theme.LineHeight+2) + r.Theme.Padding*2
	r.DrawPanel(p.x, p.y, p.width, height)

	bird := f.Birds[0]
	p.inputs = game.Sense(bird.Body, f.Pipes[0], p.inputs)

	x, y := p.x+r.Theme.Padding, p.y+r.Theme.Padding
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Bird %d", bird.MemberID))
	for i, d := range descs {
		y = r.DrawBar(x, y, d.Label, p.inputs[i], d.Min, d.Max, p.width-r.Theme.Padding*2, false)
	}

	if decide == nil {
		return
	}
	out, err := decide(p.inputs)
	if err != nil || len(out) == 0 {
		r.DrawLabelValue(x, y, "Jump", "error")
		return
	}
	jump := neural.BrainOutputDescriptors()[0]
	r.DrawBar(x, y, jump.Label, out[0]*100, jump.Min*100, jump.Max*100, p.width-r.Theme.Padding*2, out[0] > threshold)
}
