// Package ui draws the heads-up display and on-screen controls over the
// playfield. Layout values come from a Theme so panels share one look.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme is the shared panel styling.
type Theme struct {
	// Panels sit over a bright sky, so the background keeps some opacity.
	PanelBg, PanelBorder rl.Color

	SectionHeader, LabelColor, ValueColor rl.Color

	// Bars: BarFillActive marks a decision over its threshold.
	BarBg, BarFill, BarFillActive rl.Color

	FontSize, HeaderFontSize int32
	Padding, LineHeight      int32
	LabelWidth, BarHeight    int32
}

// DefaultTheme returns the theme used by every panel.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 16, G: 32, B: 48, A: 190},
		PanelBorder: rl.Color{R: 90, G: 120, B: 140, A: 255},

		SectionHeader: rl.Gold,
		LabelColor:    rl.Color{R: 200, G: 210, B: 220, A: 255},
		ValueColor:    rl.RayWhite,

		BarBg:         rl.Color{R: 30, G: 40, B: 50, A: 255},
		BarFill:       rl.Color{R: 80, G: 160, B: 220, A: 255},
		BarFillActive: rl.Color{R: 240, G: 180, B: 40, A: 255},

		FontSize:       14,
		HeaderFontSize: 16,
		Padding:        8,
		LineHeight:     18,
		LabelWidth:     64,
		BarHeight:      12,
	}
}
