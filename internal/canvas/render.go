package canvas

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/airdraw/internal/mode"
)

// RendererConfig sets brush geometry in pixels.
type RendererConfig struct {
	BrushThickness  int
	EraserThickness int
	// MaxSegment is the longest line the brush will connect. A longer jump
	// is treated as a discontinuity and only a dot is drawn. Zero disables
	// the limit.
	MaxSegment float64
	// CursorSize is the hover ring radius drawn on the output frame.
	CursorSize int
}

// DefaultRendererConfig returns the stock brush sizes.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		BrushThickness:  8,
		EraserThickness: 40,
		CursorSize:      12,
	}
}

// Renderer draws strokes into a Canvas.
type Renderer struct {
	cfg RendererConfig
}

// NewRenderer creates a Renderer. Thicknesses below one pixel are raised to one.
func NewRenderer(cfg RendererConfig) *Renderer {
	if cfg.BrushThickness < 1 {
		cfg.BrushThickness = 1
	}
	if cfg.EraserThickness < 1 {
		cfg.EraserThickness = 1
	}
	if cfg.MaxSegment < 0 {
		cfg.MaxSegment = 0
	}
	return &Renderer{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Renderer) Config() RendererConfig {
	return r.cfg
}

// Draw extends the stroke from previous to current. When the two points are
// the same, or too far apart to be one motion, a single dot is drawn at
// current. It reports whether a line segment was drawn.
func (r *Renderer) Draw(c *Canvas, previous, current image.Point, col color.RGBA) bool {
	if previous == current || r.tooLong(previous, current) {
		gocv.Circle(c.Mat(), current, dotRadius(r.cfg.BrushThickness), col, -1)
		return false
	}
	gocv.Line(c.Mat(), previous, current, col, r.cfg.BrushThickness)
	return true
}

// Erase paints a filled disc of the eraser size in the background color.
func (r *Renderer) Erase(c *Canvas, current image.Point) {
	gocv.Circle(c.Mat(), current, dotRadius(r.cfg.EraserThickness), c.Background(), -1)
}

func (r *Renderer) tooLong(a, b image.Point) bool {
	if r.cfg.MaxSegment <= 0 {
		return false
	}
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y)) > r.cfg.MaxSegment
}

func dotRadius(thickness int) int {
	if thickness < 2 {
		return 1
	}
	return thickness / 2
}

var (
	ringColor  = color.RGBA{255, 255, 255, 255}
	eraserFill = color.RGBA{0, 0, 0, 255}
)

// DrawCursor marks the cursor on an output frame. It never touches the
// canvas. COLOR_CYCLE shows no marker.
func (r *Renderer) DrawCursor(out *gocv.Mat, m mode.Mode, p image.Point, brush color.RGBA) {
	switch m {
	case mode.Hover:
		gocv.Circle(out, p, r.cfg.CursorSize, ringColor, 2)
		gocv.Circle(out, p, 3, ringColor, -1)
	case mode.Draw:
		radius := dotRadius(r.cfg.BrushThickness)
		gocv.Circle(out, p, radius, brush, -1)
		gocv.Circle(out, p, radius+2, ringColor, 2)
	case mode.Erase:
		radius := dotRadius(r.cfg.EraserThickness)
		gocv.Circle(out, p, radius, eraserFill, -1)
		gocv.Circle(out, p, radius+2, ringColor, 2)
	}
}
