package e2e

import (
	"fmt"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/airdraw/internal/capture"
	"github.com/ayusman/airdraw/internal/detector"
)

const (
	frameWidth  = 160
	frameHeight = 120
)

// blankFrames returns looping camera frames; the session only needs their
// size since hands come from the detector script.
func blankFrames(t *testing.T, n int) *capture.MockCamera {
	t.Helper()
	cam := capture.NewMockCamera(capture.SolidFrames(n, frameWidth, frameHeight, color.RGBA{70, 70, 70, 255}), true)
	t.Cleanup(cam.Release)
	return cam
}

// hold repeats one pose for n frames.
func hold(h detector.HandLandmarks, x, y float64, n int) [][]detector.HandLandmarks {
	out := make([][]detector.HandLandmarks, n)
	for i := range out {
		out[i] = []detector.HandLandmarks{detector.WithIndexTipAt(h, x, y)}
	}
	return out
}

// stroke moves a pointing index finger from (x0, y) to (x1, y) in steps.
func stroke(x0, x1, y float64, steps int) [][]detector.HandLandmarks {
	out := make([][]detector.HandLandmarks, 0, steps+1)
	for i := 0; i <= steps; i++ {
		x := x0 + (x1-x0)*float64(i)/float64(steps)
		out = append(out, []detector.HandLandmarks{detector.WithIndexTipAt(detector.PointingLandmarks(), x, y)})
	}
	return out
}

// script concatenates per-frame detector results.
func script(parts ...[][]detector.HandLandmarks) [][]detector.HandLandmarks {
	var out [][]detector.HandLandmarks
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// decodePNG decodes a canvas PNG.
func decodePNG(t *testing.T, data []byte) gocv.Mat {
	t.Helper()
	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || m.Empty() {
		t.Fatalf("decode png: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// marked reports whether the canvas pixel at (x, y) differs from black.
func marked(m gocv.Mat, x, y int) bool {
	v := m.GetVecbAt(y, x)
	return v[0] != 0 || v[1] != 0 || v[2] != 0
}

// markedCount counts non-black pixels.
func markedCount(t *testing.T, m gocv.Mat) int {
	t.Helper()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray)
}

func px(fx float64, size int) int {
	return int(fx * float64(size))
}

func describe(m gocv.Mat, y int) string {
	row := make([]byte, 0, m.Cols())
	for x := 0; x < m.Cols(); x++ {
		if marked(m, x, y) {
			row = append(row, '#')
		} else {
			row = append(row, '.')
		}
	}
	return fmt.Sprintf("row %d: %s", y, row)
}
