package components

import (
	"math/rand"
	"testing"
)

func TestAdvanceThenJumpIsExact(t *testing.T) {
	const gravity, jump = 6.0, 65.0
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 1000; i++ {
		start := float64(rng.Intn(1080))
		b := Body{X: 100, Y: start, Size: 50}
		b.Advance(gravity)
		b.Jump(jump)

		want := start + gravity - jump
		if b.Y != want {
			t.Fatalf("y = %v after advance+jump from %v, want %v", b.Y, start, want)
		}
		if b.X != 100 {
			t.Fatalf("x moved to %v", b.X)
		}
	}
}

func TestBodyEdges(t *testing.T) {
	b := Body{X: 100, Y: 540, Size: 50}
	if b.Right() != 150 {
		t.Errorf("Right() = %v, want 150", b.Right())
	}
	if b.Bottom() != 590 {
		t.Errorf("Bottom() = %v, want 590", b.Bottom())
	}
}

func TestParsePalette(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		fixed   bool
		wantErr bool
	}{
		{"default random", "", false, false},
		{"random", "random", false, false},
		{"red", "red", true, false},
		{"case insensitive", " Red ", true, false},
		{"unknown", "mauve", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePalette(tt.input, 1)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePalette: %v", err)
			}
			_, isFixed := p.(FixedPalette)
			if isFixed != tt.fixed {
				t.Errorf("fixed = %v, want %v", isFixed, tt.fixed)
			}
		})
	}
}

func TestRandomPaletteDeterministic(t *testing.T) {
	a := NewRandomPalette(11)
	b := NewRandomPalette(11)
	for i := 0; i < 20; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("palettes diverged at draw %d", i)
		}
	}
}

func TestDeciderFunc(t *testing.T) {
	var d Decider = DeciderFunc(func(in []float64) ([]float64, error) {
		return []float64{in[0] * 2}, nil
	})
	out, err := d.Decide([]float64{0.25})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0.5 {
		t.Errorf("out = %v, want 0.5", out[0])
	}
}
