package components

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// namedPlumage lists the fixed colours selectable from the command line.
var namedPlumage = map[string]Plumage{
	"red":    {R: 200, G: 0, B: 0},
	"blue":   {R: 0, G: 100, B: 255},
	"yellow": {R: 240, G: 200, B: 0},
	"green":  {R: 0, G: 190, B: 80},
}

// Palette hands out a colour for each spawned bird.
type Palette interface {
	Next() Plumage
}

// FixedPalette paints every bird the same colour.
type FixedPalette Plumage

// Next returns the fixed colour.
func (p FixedPalette) Next() Plumage {
	return Plumage(p)
}

// RandomPalette draws an independent colour per bird from its own rng,
// so colour choice never disturbs the obstacle sequence.
type RandomPalette struct {
	rng *rand.Rand
}

// NewRandomPalette creates a palette seeded independently of the simulation.
func NewRandomPalette(seed int64) *RandomPalette {
	return &RandomPalette{rng: rand.New(rand.NewSource(seed))}
}

// Next returns a random colour.
func (p *RandomPalette) Next() Plumage {
	return Plumage{
		R: uint8(p.rng.Intn(256)),
		G: uint8(p.rng.Intn(256)),
		B: uint8(p.rng.Intn(256)),
	}
}

// ParsePalette resolves a colour option: "random" or one of PlumageNames.
func ParsePalette(name string, seed int64) (Palette, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "random" {
		return NewRandomPalette(seed), nil
	}
	if c, ok := namedPlumage[name]; ok {
		return FixedPalette(c), nil
	}
	return nil, fmt.Errorf("unknown bird color %q (want random or one of %s)", name, strings.Join(PlumageNames(), ", "))
}

// PlumageNames returns the fixed colour names in sorted order.
func PlumageNames() []string {
	names := make([]string, 0, len(namedPlumage))
	for n := range namedPlumage {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
