// Package session runs one frame at a time through the drawing core:
// classify the primary hand, step the mode machine, smooth the cursor,
// render into the persistent canvas and composite it over the live frame.
package session

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/airdraw/internal/canvas"
	"github.com/ayusman/airdraw/internal/cursor"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/gesture"
	"github.com/ayusman/airdraw/internal/mode"
)

var (
	// ErrFrameSize is returned when a frame does not match the canvas
	// allocated from the first frame.
	ErrFrameSize = errors.New("frame size differs from canvas")
	// ErrEmptyFrame is returned for a frame without pixels.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrSwatchIsBackground is returned when a brush color equals the
	// background and could never be seen.
	ErrSwatchIsBackground = errors.New("palette color equals background")
)

// Config holds everything the core needs.
type Config struct {
	Classifier gesture.Config
	Mode       mode.Config
	// Smoothing is the cursor filter factor in [0, 1).
	Smoothing  float64
	Renderer   canvas.RendererConfig
	Swatches   []canvas.Swatch
	Background color.RGBA
	// Cursor draws the mode marker on the output frame.
	Cursor bool
	Logger *log.Logger
}

// DefaultConfig returns the stock drawing setup.
func DefaultConfig() Config {
	return Config{
		Classifier: gesture.DefaultConfig(),
		Mode:       mode.DefaultConfig(),
		Smoothing:  0.7,
		Renderer:   canvas.DefaultRendererConfig(),
		Swatches:   canvas.DefaultSwatches(),
		Background: color.RGBA{0, 0, 0, 255},
		Cursor:     true,
	}
}

// Validate checks the palette against the background and the filter range.
func (c Config) Validate() error {
	if len(c.Swatches) == 0 {
		return canvas.ErrEmptyPalette
	}
	for _, s := range c.Swatches {
		if s.Color == c.Background {
			return fmt.Errorf("%w: %s", ErrSwatchIsBackground, s.Name)
		}
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return fmt.Errorf("smoothing %.2f not in [0, 1)", c.Smoothing)
	}
	return nil
}

// Session owns the canvas, palette, mode machine and smoother. It is not safe
// for concurrent use except for RequestStop and Stopped.
type Session struct {
	cfg        Config
	logger     *log.Logger
	classifier *gesture.Classifier
	machine    *mode.Machine
	smoother   *cursor.Smoother
	renderer   *canvas.Renderer
	palette    *canvas.Palette

	canvas *canvas.Canvas
	output gocv.Mat

	// previous is the last drawn point; it exists only while in DRAW.
	previous *image.Point
	hadHand  bool
	stopped  atomic.Bool
}

// New creates a session. The mode cooldown starts at now.
func New(cfg Config, now time.Time) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	palette, err := canvas.NewPalette(cfg.Swatches)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Session{
		cfg:        cfg,
		logger:     logger,
		classifier: gesture.NewClassifier(cfg.Classifier),
		machine:    mode.New(cfg.Mode, now),
		smoother:   cursor.NewSmoother(cfg.Smoothing),
		renderer:   canvas.NewRenderer(cfg.Renderer),
		palette:    palette,
		output:     gocv.NewMat(),
	}, nil
}

// Step processes one frame. The returned Mat is owned by the session and
// stays valid until the next Step or Close; use OutputSnapshot for a copy.
func (s *Session) Step(frame gocv.Mat, hands []detector.HandLandmarks, now time.Time) (gocv.Mat, FrameState, error) {
	if frame.Empty() {
		return gocv.Mat{}, FrameState{}, ErrEmptyFrame
	}
	if err := s.ensureCanvas(frame); err != nil {
		return gocv.Mat{}, FrameState{}, err
	}

	st := FrameState{Time: now}

	hand, ok := detector.Primary(hands)
	if !ok {
		s.loseHand()
		st.Gesture = gesture.None
		st.Mode = s.machine.Mode()
	} else {
		s.hadHand = true
		s.track(hand, now, &st)
	}

	swatch := s.palette.Current()
	st.PaletteIndex = s.palette.Index()
	st.Color = swatch.Name

	if err := s.canvas.Composite(frame, &s.output); err != nil {
		return gocv.Mat{}, st, err
	}
	if s.cfg.Cursor && st.Cursor != nil {
		s.renderer.DrawCursor(&s.output, st.Mode, st.Cursor.Image(), swatch.Color)
	}

	return s.output, st, nil
}

func (s *Session) ensureCanvas(frame gocv.Mat) error {
	if s.canvas == nil {
		c, err := canvas.New(frame.Cols(), frame.Rows(), s.cfg.Background)
		if err != nil {
			return err
		}
		s.canvas = c
		s.logger.Debug("canvas allocated", "width", frame.Cols(), "height", frame.Rows())
		return nil
	}
	if size := s.canvas.Size(); size.X != frame.Cols() || size.Y != frame.Rows() {
		return fmt.Errorf("%w: got %dx%d, canvas is %dx%d",
			ErrFrameSize, frame.Cols(), frame.Rows(), size.X, size.Y)
	}
	return nil
}

func (s *Session) loseHand() {
	s.previous = nil
	if !s.hadHand {
		return
	}
	s.hadHand = false
	s.machine.Reset()
	s.smoother.Reset()
	s.logger.Debug("hand lost")
}

func (s *Session) track(hand *detector.HandLandmarks, now time.Time, st *FrameState) {
	fingers := s.classifier.Classify(hand)
	g := gesture.Map(fingers)
	tr := s.machine.Step(g, now)

	st.Hand = true
	st.Handedness = hand.Handedness
	st.Fingers = fingers.String()
	st.Gesture = g
	st.Mode = tr.To
	st.From = tr.From

	if g == gesture.None {
		s.logger.Debug("unmapped finger pattern", "fingers", fingers)
	}
	if tr.Changed() {
		s.logger.Info("mode", "from", tr.From, "to", tr.To)
	}
	if tr.Advance {
		sw := s.palette.Advance()
		st.Advanced = true
		s.logger.Info("color", "index", s.palette.Index(), "name", sw.Name)
	}

	size := s.canvas.Size()
	tip := hand.Points[detector.IndexTip]
	raw := cursor.Point{X: tip.X * float64(size.X), Y: tip.Y * float64(size.Y)}
	pos := s.smoother.Update(raw)
	st.Cursor = &pos

	current := pos.Image()
	switch tr.To {
	case mode.Draw:
		if s.previous == nil {
			s.previous = &current
		}
		st.Segment = s.renderer.Draw(s.canvas, *s.previous, current, s.palette.Current().Color)
		st.Stroke = true
		s.previous = &current
	case mode.Erase:
		s.renderer.Erase(s.canvas, current)
		st.Stroke = true
		s.previous = nil
	default:
		s.previous = nil
	}
}

// Mode returns the current drawing mode.
func (s *Session) Mode() mode.Mode {
	return s.machine.Mode()
}

// Palette returns the session palette. Only the pipeline goroutine may
// mutate it.
func (s *Session) Palette() *canvas.Palette {
	return s.palette
}

// ClearCanvas resets every canvas pixel to the background and forgets the
// stroke position. Calling it twice is the same as calling it once.
func (s *Session) ClearCanvas() {
	s.previous = nil
	if s.canvas != nil {
		s.canvas.Clear()
	}
}

// CanvasSnapshot returns a copy of the canvas, or an empty Mat before the
// first frame. The caller must close it.
func (s *Session) CanvasSnapshot() gocv.Mat {
	if s.canvas == nil {
		return gocv.NewMat()
	}
	return s.canvas.Snapshot()
}

// OutputSnapshot returns a copy of the last composited frame. The caller
// must close it.
func (s *Session) OutputSnapshot() gocv.Mat {
	return s.output.Clone()
}

// HasCanvas reports whether a frame has been processed yet.
func (s *Session) HasCanvas() bool {
	return s.canvas != nil
}

// RequestStop asks the driving loop to end after the current frame. It may
// be called from any goroutine.
func (s *Session) RequestStop() {
	s.stopped.Store(true)
}

// Stopped reports whether RequestStop was called.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Close releases the canvas and output rasters.
func (s *Session) Close() error {
	var err error
	if s.canvas != nil {
		err = s.canvas.Close()
		s.canvas = nil
	}
	if cerr := s.output.Close(); err == nil {
		err = cerr
	}
	return err
}
