package ui

import "testing"

func TestSliderRate(t *testing.T) {
	tests := []struct {
		v    float32
		want int
	}{
		{MinTickRate, MinTickRate},
		{0, MinTickRate},
		{44, 40},
		{45, 50},
		{203.7, 200},
		{MaxTickRate - 1, MaxTickRate},
		{MaxTickRate, 0},
	}
	for _, tt := range tests {
		if got := sliderRate(tt.v); got != tt.want {
			t.Errorf("sliderRate(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"middle", 5, 0, 10, 0.5},
		{"below", -3, 0, 10, 0},
		{"above", 30, 0, 10, 1},
		{"negative range", 0, -100, 100, 0.5},
		{"empty range", 4, 2, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("normalize(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}
