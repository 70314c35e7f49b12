package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// Sky draws the background: a vertical gradient with a ground strip.
type Sky struct {
	w, h   int32
	top    rl.Color
	bottom rl.Color
	ground rl.Color
}

// NewSky creates a background for a screen of the given size.
func NewSky(w, h int32) *Sky {
	return &Sky{
		w:      w,
		h:      h,
		top:    rl.Color{R: 78, G: 192, B: 202, A: 255},
		bottom: rl.Color{R: 200, G: 235, B: 240, A: 255},
		ground: rl.Color{R: 222, G: 216, B: 149, A: 255},
	}
}

// Draw clears the screen to the sky.
func (s *Sky) Draw() {
	rl.ClearBackground(s.bottom)
	rl.DrawRectangleGradientV(0, 0, s.w, s.h, s.top, s.bottom)
	rl.DrawRectangle(0, s.h-8, s.w, 8, s.ground)
}
