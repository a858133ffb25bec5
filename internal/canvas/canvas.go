// Package canvas holds the persistent stroke raster: the palette, the
// renderer that draws into it and the compositor that lays it over video.
package canvas

import (
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	// ErrInvalidSize is returned for a canvas without pixels.
	ErrInvalidSize = errors.New("canvas size must be positive")
	// ErrSizeMismatch is returned when the live frame and canvas differ in
	// size or pixel type.
	ErrSizeMismatch = errors.New("frame and canvas differ in size or type")
)

// Canvas is a BGR raster the size of the video frame. Pixels equal to the
// background color are transparent when composited.
type Canvas struct {
	mat        gocv.Mat
	background color.RGBA
}

// New allocates a canvas filled with background.
func New(width, height int, background color.RGBA) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	return &Canvas{
		mat:        gocv.NewMatWithSizeFromScalar(scalar(background), height, width, gocv.MatTypeCV8UC3),
		background: background,
	}, nil
}

// scalar converts an RGBA color into the BGR scalar OpenCV expects.
func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() image.Point {
	return image.Pt(c.mat.Cols(), c.mat.Rows())
}

// Background returns the clear color.
func (c *Canvas) Background() color.RGBA {
	return c.background
}

// Mat exposes the underlying raster for drawing.
func (c *Canvas) Mat() *gocv.Mat {
	return &c.mat
}

// Clear resets every pixel to the background color.
func (c *Canvas) Clear() {
	c.mat.SetTo(scalar(c.background))
}

// Snapshot returns a copy of the raster. The caller must close it.
func (c *Canvas) Snapshot() gocv.Mat {
	return c.mat.Clone()
}

// Marked counts pixels that differ from the background.
func (c *Canvas) Marked() int {
	bg := gocv.NewMat()
	defer bg.Close()
	gocv.InRangeWithScalar(c.mat, scalar(c.background), scalar(c.background), &bg)
	return c.mat.Rows()*c.mat.Cols() - gocv.CountNonZero(bg)
}

// Composite writes live with the canvas strokes laid over it into dst.
func (c *Canvas) Composite(live gocv.Mat, dst *gocv.Mat) error {
	return Composite(live, c.mat, scalar(c.background), dst)
}

// Close releases the raster.
func (c *Canvas) Close() error {
	return c.mat.Close()
}
