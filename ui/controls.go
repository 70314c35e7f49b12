package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Tick-rate slider bounds. The top stop means uncapped.
const (
	MinTickRate = 10
	MaxTickRate = 1000
)

// SpeedControl is a raygui slider for the tick rate plus a pause toggle.
type SpeedControl struct {
	renderer *Renderer
	x, y     int32
	width    int32
	paused   bool
}

// NewSpeedControl creates a speed control panel.
func NewSpeedControl(x, y, width int32) *SpeedControl {
	return &SpeedControl{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// Paused reports whether the pause toggle is on.
func (c *SpeedControl) Paused() bool { return c.paused }

// Draw renders the slider and returns the selected rate, which is rate
// itself unless the slider moved. A rate of 0 means uncapped and is shown
// as "max".
func (c *SpeedControl) Draw(rate int) int {
	r := c.renderer
	pad := r.Theme.Padding
	r.DrawPanel(c.x, c.y, c.width, 60)

	label := "max"
	if rate > 0 {
		label = fmt.Sprintf("%d/s", rate)
	}
	rl.DrawText("Tick rate", c.x+pad, c.y+pad, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(label, c.x+c.width-pad-rl.MeasureText(label, r.Theme.FontSize), c.y+pad, r.Theme.FontSize, r.Theme.ValueColor)

	bounds := rl.Rectangle{
		X:      float32(c.x + pad),
		Y:      float32(c.y + pad + r.Theme.LineHeight),
		Width:  float32(c.width - pad*2 - 70),
		Height: 20,
	}
	current := float32(rate)
	if rate <= 0 {
		current = MaxTickRate
	}
	picked := gui.SliderBar(bounds, "", "", current, MinTickRate, MaxTickRate)

	toggle := rl.Rectangle{X: bounds.X + bounds.Width + 10, Y: bounds.Y, Width: 60, Height: 20}
	text := "Pause"
	if c.paused {
		text = "Resume"
	}
	if gui.Button(toggle, text) {
		c.paused = !c.paused
	}

	if picked == current {
		return rate
	}
	return sliderRate(picked)
}

// sliderRate converts a slider position to a tick rate, snapping to 10/s
// steps and mapping the top stop to 0 (uncapped).
func sliderRate(v float32) int {
	if v >= MaxTickRate {
		return 0
	}
	rate := int(v/10+0.5) * 10
	return max(MinTickRate, rate)
}
