// Package cursor smooths the fingertip position that drives the brush.
package cursor

import (
	"image"
	"math"
)

// Point is a cursor position in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Image rounds p to the nearest pixel.
func (p Point) Image() image.Point {
	return image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// maxFactor keeps the filter from freezing the cursor entirely.
const maxFactor = 0.999

// ClampFactor limits a smoothing factor to [0, 1).
func ClampFactor(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > maxFactor:
		return maxFactor
	}
	return f
}

// Smooth is one step of an exponential filter: previous weighted by factor,
// raw by the remainder. A steady cursor stays put for any factor.
func Smooth(raw, previous Point, factor float64) Point {
	factor = ClampFactor(factor)
	return Point{
		X: previous.X*factor + raw.X*(1-factor),
		Y: previous.Y*factor + raw.Y*(1-factor),
	}
}

// Smoother carries the filter state between frames.
type Smoother struct {
	factor float64
	last   Point
	primed bool
}

// NewSmoother creates a Smoother with the given factor, clamped to [0, 1).
func NewSmoother(factor float64) *Smoother {
	return &Smoother{factor: ClampFactor(factor)}
}

// Factor returns the effective smoothing factor.
func (s *Smoother) Factor() float64 {
	return s.factor
}

// Update filters raw. The first update after creation or Reset returns raw
// unchanged so a reacquired hand does not snap from a stale position.
func (s *Smoother) Update(raw Point) Point {
	if !s.primed {
		s.last = raw
		s.primed = true
		return raw
	}
	s.last = Smooth(raw, s.last, s.factor)
	return s.last
}

// Reset forgets the previous position. Call it when the hand is lost.
func (s *Smoother) Reset() {
	s.primed = false
	s.last = Point{}
}
