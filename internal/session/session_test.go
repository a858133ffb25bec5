package session

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"math"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/airdraw/internal/canvas"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/gesture"
	"github.com/ayusman/airdraw/internal/mode"
)

var (
	epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

func at(frame int) time.Time {
	return epoch.Add(time.Duration(frame) * 33 * time.Millisecond)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode.Cooldown = 0
	cfg.Cursor = false
	return cfg
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	s, err := New(cfg, epoch)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newFrame(t *testing.T, w, h int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), h, w, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func handAt(h detector.HandLandmarks, x, y float64) []detector.HandLandmarks {
	return []detector.HandLandmarks{detector.WithIndexTipAt(h, x, y)}
}

func canvasPixel(t *testing.T, s *Session, x, y int) color.RGBA {
	t.Helper()
	snap := s.CanvasSnapshot()
	defer snap.Close()
	v := snap.GetVecbAt(y, x)
	return color.RGBA{R: v[2], G: v[1], B: v[0], A: 255}
}

func step(t *testing.T, s *Session, frame gocv.Mat, hands []detector.HandLandmarks, now time.Time) FrameState {
	t.Helper()
	_, st, err := s.Step(frame, hands, now)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	return st
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"no swatches", func(c *Config) { c.Swatches = nil }, canvas.ErrEmptyPalette},
		{"swatch equals background", func(c *Config) {
			c.Swatches = append(c.Swatches, canvas.Swatch{Name: "Black", Color: black})
		}, ErrSwatchIsBackground},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Smoothing = 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for smoothing 1")
	}
}

// An index-only right hand moves from (100,100) to (110,100) with factor
// 0.7: the first DRAW frame leaves a dot, the second a segment ending at
// (103,100).
func TestStep_DrawScenario(t *testing.T) {
	s := newTestSession(t, testConfig())
	frame := newFrame(t, 200, 200)

	st := step(t, s, frame, handAt(detector.PointingLandmarks(), 0.50, 0.50), at(0))
	if st.Gesture != gesture.Draw || st.From != mode.Hover || st.Mode != mode.Draw {
		t.Fatalf("frame 1: gesture %s, %s -> %s; want DRAW, HOVER -> DRAW", st.Gesture, st.From, st.Mode)
	}
	if st.Segment {
		t.Error("frame 1 should draw a dot, not a segment")
	}
	if math.Abs(st.Cursor.X-100) > 1e-9 || math.Abs(st.Cursor.Y-100) > 1e-9 {
		t.Errorf("frame 1 cursor = %+v, want (100,100)", *st.Cursor)
	}
	if got := canvasPixel(t, s, 100, 100); got != white {
		t.Errorf("dot pixel = %v, want white", got)
	}

	st = step(t, s, frame, handAt(detector.PointingLandmarks(), 0.55, 0.50), at(1))
	if !st.Segment {
		t.Error("frame 2 should draw a segment")
	}
	if math.Abs(st.Cursor.X-103) > 1e-9 || math.Abs(st.Cursor.Y-100) > 1e-9 {
		t.Errorf("frame 2 cursor = %+v, want (103,100)", *st.Cursor)
	}
	for _, x := range []int{100, 101, 102, 103} {
		if got := canvasPixel(t, s, x, 100); got != white {
			t.Errorf("segment pixel (%d,100) = %v, want white", x, got)
		}
	}
	if got := canvasPixel(t, s, 120, 100); got != black {
		t.Errorf("pixel past the segment = %v, want background", got)
	}
}

func TestStep_OutputShowsCanvasOverLive(t *testing.T) {
	s := newTestSession(t, testConfig())
	frame := newFrame(t, 200, 200)

	out, _, err := s.Step(frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(0))
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if v := out.GetVecbAt(100, 100); v[0] != 255 || v[1] != 255 || v[2] != 255 {
		t.Errorf("stroke pixel = %v, want white", v)
	}
	if v := out.GetVecbAt(10, 10); v[0] != 40 || v[1] != 40 || v[2] != 40 {
		t.Errorf("untouched pixel = %v, want live value", v)
	}
}

func TestStep_NoHand(t *testing.T) {
	s := newTestSession(t, testConfig())
	frame := newFrame(t, 200, 200)

	step(t, s, frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(0))
	before := s.CanvasSnapshot()
	defer before.Close()

	st := step(t, s, frame, nil, at(1))
	if st.Hand || st.Gesture != gesture.None || st.Mode != mode.Hover {
		t.Errorf("no-hand state = %+v", st)
	}
	if st.Cursor != nil {
		t.Error("no-hand frame should not report a cursor")
	}

	after := s.CanvasSnapshot()
	defer after.Close()
	if !bytes.Equal(before.ToBytes(), after.ToBytes()) {
		t.Error("a frame without a hand changed the canvas")
	}
}

func TestStep_DropoutKeepsDrawing(t *testing.T) {
	cfg := testConfig()
	cfg.Mode.Cooldown = 200 * time.Millisecond
	s := newTestSession(t, cfg)
	frame := newFrame(t, 200, 200)

	for i := 10; i <= 20; i++ {
		step(t, s, frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(i))
	}
	if st := step(t, s, frame, nil, at(21)); st.Mode != mode.Hover {
		t.Fatalf("mode without a hand = %s, want HOVER", st.Mode)
	}

	st := step(t, s, frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(22))
	if st.Mode != mode.Draw {
		t.Errorf("mode after a one-frame dropout = %s, want DRAW", st.Mode)
	}
}

func TestStep_HoverToDrawDoesNotConnect(t *testing.T) {
	cfg := testConfig()
	cfg.Smoothing = 0
	s := newTestSession(t, cfg)
	frame := newFrame(t, 200, 200)

	step(t, s, frame, handAt(detector.PointingLandmarks(), 0.1, 0.1), at(0))
	step(t, s, frame, handAt(detector.PeaceLandmarks(), 0.1, 0.1), at(1))
	st := step(t, s, frame, handAt(detector.PointingLandmarks(), 0.9, 0.9), at(2))

	if st.Mode != mode.Draw || st.Segment {
		t.Fatalf("re-entry frame: mode %s segment %v; want DRAW dot", st.Mode, st.Segment)
	}
	if got := canvasPixel(t, s, 100, 100); got != black {
		t.Errorf("midpoint = %v, want background", got)
	}
	if got := canvasPixel(t, s, 180, 180); got != white {
		t.Errorf("re-entry dot = %v, want white", got)
	}
}

func TestStep_Erase(t *testing.T) {
	s := newTestSession(t, testConfig())
	frame := newFrame(t, 200, 200)

	step(t, s, frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(0))
	st := step(t, s, frame, handAt(detector.OpenPalmLandmarks(), 0.5, 0.5), at(1))

	if st.Mode != mode.Erase {
		t.Fatalf("mode = %s, want ERASE", st.Mode)
	}
	if got := canvasPixel(t, s, 100, 100); got != black {
		t.Errorf("erased pixel = %v, want background", got)
	}
}

func TestStep_ColorCycleOncePerEntry(t *testing.T) {
	cfg := testConfig()
	cfg.Mode.RepeatColorCycle = false
	s := newTestSession(t, cfg)
	frame := newFrame(t, 64, 64)

	advances := 0
	for i := 0; i < 10; i++ {
		st := step(t, s, frame, handAt(detector.ThumbsUpLandmarks(), 0.5, 0.5), at(i))
		if st.Advanced {
			advances++
		}
	}
	if advances != 1 {
		t.Errorf("advances = %d, want 1", advances)
	}
	if s.Palette().Index() != 1 {
		t.Errorf("palette index = %d, want 1", s.Palette().Index())
	}

	// A stroke after the cycle uses the new color.
	step(t, s, frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(10))
	if got := canvasPixel(t, s, 32, 32); got != s.Palette().Current().Color {
		t.Errorf("stroke color = %v, want %v", got, s.Palette().Current().Color)
	}
}

func TestStep_FrameSize(t *testing.T) {
	s := newTestSession(t, testConfig())

	step(t, s, newFrame(t, 64, 48), nil, at(0))
	if _, _, err := s.Step(newFrame(t, 32, 32), nil, at(1)); !errors.Is(err, ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, _, err := s.Step(empty, nil, at(2)); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestClearCanvas(t *testing.T) {
	s := newTestSession(t, testConfig())
	frame := newFrame(t, 200, 200)

	s.ClearCanvas() // before any frame

	step(t, s, frame, handAt(detector.PointingLandmarks(), 0.5, 0.5), at(0))
	s.ClearCanvas()
	once := s.CanvasSnapshot()
	defer once.Close()
	s.ClearCanvas()
	twice := s.CanvasSnapshot()
	defer twice.Close()

	if !bytes.Equal(once.ToBytes(), twice.ToBytes()) {
		t.Error("clearing twice differs from clearing once")
	}
	if got := canvasPixel(t, s, 100, 100); got != black {
		t.Errorf("cleared pixel = %v, want background", got)
	}

	// The stroke restarts with a dot after a clear.
	st := step(t, s, frame, handAt(detector.PointingLandmarks(), 0.6, 0.5), at(1))
	if st.Segment {
		t.Error("first stroke after clear should be a dot")
	}
}

func TestRequestStop(t *testing.T) {
	s, err := New(DefaultConfig(), epoch)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if s.Stopped() {
		t.Error("new session reports stopped")
	}
	s.RequestStop()
	if !s.Stopped() {
		t.Error("RequestStop had no effect")
	}
}

func TestSlot(t *testing.T) {
	slot := NewSlot()

	if _, ok := slot.Latest(); ok {
		t.Error("empty slot reports a frame")
	}

	slot.Publish([]byte("a"), FrameState{Mode: mode.Hover})
	seq := slot.Publish([]byte("b"), FrameState{Mode: mode.Draw})

	f, ok := slot.Latest()
	if !ok || f.Seq != seq || string(f.JPEG) != "b" || f.State.Mode != mode.Draw {
		t.Errorf("Latest() = %+v, want the second frame", f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan Frame, 1)
	go func() {
		f, err := slot.Next(ctx, seq)
		if err == nil {
			got <- f
		}
	}()

	time.Sleep(20 * time.Millisecond)
	slot.Publish([]byte("c"), FrameState{})

	select {
	case f := <-got:
		if string(f.JPEG) != "c" {
			t.Errorf("Next() = %q, want c", f.JPEG)
		}
	case <-ctx.Done():
		t.Fatal("Next() did not wake on publish")
	}

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	if _, err := slot.Next(short, seq+1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
