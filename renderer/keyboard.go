package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// Keyboard is a decider driven by the player: Space, Up or the left mouse
// button jumps. It reads raylib input state, so the round must step on the
// main goroutine (one worker).
type Keyboard struct{}

// Decide implements components.Decider.
func (Keyboard) Decide([]float64) ([]float64, error) {
	if rl.IsKeyPressed(rl.KeySpace) || rl.IsKeyPressed(rl.KeyUp) || rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		return []float64{1}, nil
	}
	return []float64{0}, nil
}
