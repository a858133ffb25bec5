package canvas

import (
	"errors"
	"fmt"
	"image/color"
)

var (
	// ErrEmptyPalette is returned when a palette has no colors.
	ErrEmptyPalette = errors.New("palette has no colors")
	// ErrIndexRange is returned when restoring an index outside the palette.
	ErrIndexRange = errors.New("palette index out of range")
)

// Swatch is a named brush color.
type Swatch struct {
	Name  string     `json:"name"`
	Color color.RGBA `json:"color"`
}

// DefaultSwatches returns the stock brush colors in cycling order.
func DefaultSwatches() []Swatch {
	return []Swatch{
		{"White", color.RGBA{255, 255, 255, 255}},
		{"Red", color.RGBA{255, 0, 0, 255}},
		{"Green", color.RGBA{0, 255, 0, 255}},
		{"Blue", color.RGBA{0, 0, 255, 255}},
		{"Yellow", color.RGBA{255, 255, 0, 255}},
		{"Magenta", color.RGBA{255, 0, 255, 255}},
		{"Cyan", color.RGBA{0, 255, 255, 255}},
		{"Purple", color.RGBA{128, 0, 128, 255}},
		{"Orange", color.RGBA{255, 165, 0, 255}},
		{"Dark Green", color.RGBA{0, 128, 0, 255}},
	}
}

// Palette is a fixed, ordered set of swatches with a current index that
// only moves forward, wrapping at the end.
type Palette struct {
	swatches []Swatch
	index    int
}

// NewPalette creates a palette positioned on its first swatch.
func NewPalette(swatches []Swatch) (*Palette, error) {
	if len(swatches) == 0 {
		return nil, ErrEmptyPalette
	}
	s := make([]Swatch, len(swatches))
	copy(s, swatches)
	return &Palette{swatches: s}, nil
}

// Len returns the number of swatches.
func (p *Palette) Len() int {
	return len(p.swatches)
}

// Index returns the current position.
func (p *Palette) Index() int {
	return p.index
}

// Swatches returns a copy of the palette contents.
func (p *Palette) Swatches() []Swatch {
	s := make([]Swatch, len(p.swatches))
	copy(s, p.swatches)
	return s
}

// Current returns the active swatch. An index outside the palette is a
// programming error and panics.
func (p *Palette) Current() Swatch {
	if p.index < 0 || p.index >= len(p.swatches) {
		panic(fmt.Sprintf("canvas: palette index %d outside [0, %d)", p.index, len(p.swatches)))
	}
	return p.swatches[p.index]
}

// Advance moves to the next swatch and returns it.
func (p *Palette) Advance() Swatch {
	p.index = (p.index + 1) % len(p.swatches)
	return p.Current()
}

// SetIndex restores a saved position.
func (p *Palette) SetIndex(i int) error {
	if i < 0 || i >= len(p.swatches) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexRange, i, len(p.swatches))
	}
	p.index = i
	return nil
}
