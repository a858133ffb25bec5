package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	script [][]HandLandmarks
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetScript queues one result per Detect call. When the script runs out,
// Detect keeps returning its last entry.
func (m *MockDetector) SetScript(script ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) > 0 {
		m.hands = m.script[0]
		m.script = m.script[1:]
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// SyntheticHand builds an upright right hand, as seen in a mirrored selfie
// frame, with the requested fingers extended. Extended fingers have their
// tip well above the PIP joint; curled fingers fold the tip back below it.
// The extended thumb points away from the palm toward smaller x.
func SyntheticHand(thumb, index, middle, ring, pinky bool) HandLandmarks {
	h := HandLandmarks{
		Handedness: Right,
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	h.Points[ThumbCMC] = Point3D{X: 0.44, Y: 0.75}
	h.Points[ThumbMCP] = Point3D{X: 0.40, Y: 0.70}
	if thumb {
		h.Points[ThumbIP] = Point3D{X: 0.34, Y: 0.66}
		h.Points[ThumbTip] = Point3D{X: 0.28, Y: 0.63}
	} else {
		h.Points[ThumbIP] = Point3D{X: 0.43, Y: 0.66}
		h.Points[ThumbTip] = Point3D{X: 0.47, Y: 0.64}
	}

	setFinger(&h, IndexMCP, 0.45, index)
	setFinger(&h, MiddleMCP, 0.50, middle)
	setFinger(&h, RingMCP, 0.55, ring)
	setFinger(&h, PinkyMCP, 0.60, pinky)

	return h
}

// setFinger fills the four landmarks of a non-thumb finger starting at mcp.
func setFinger(h *HandLandmarks, mcp int, x float64, extended bool) {
	h.Points[mcp] = Point3D{X: x, Y: 0.65, Z: -0.01}
	if extended {
		h.Points[mcp+1] = Point3D{X: x, Y: 0.55, Z: -0.01}
		h.Points[mcp+2] = Point3D{X: x, Y: 0.47, Z: -0.01}
		h.Points[mcp+3] = Point3D{X: x, Y: 0.40, Z: -0.01}
		return
	}
	h.Points[mcp+1] = Point3D{X: x, Y: 0.60, Z: -0.04}
	h.Points[mcp+2] = Point3D{X: x, Y: 0.64, Z: -0.05}
	h.Points[mcp+3] = Point3D{X: x, Y: 0.68, Z: -0.03}
}

// PointingLandmarks returns a hand with only the index finger extended.
func PointingLandmarks() HandLandmarks {
	return SyntheticHand(false, true, false, false, false)
}

// PeaceLandmarks returns a hand with index and middle fingers extended.
func PeaceLandmarks() HandLandmarks {
	return SyntheticHand(false, true, true, false, false)
}

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return SyntheticHand(true, true, true, true, true)
}

// ThumbsUpLandmarks returns a hand with only the thumb extended.
func ThumbsUpLandmarks() HandLandmarks {
	return SyntheticHand(true, false, false, false, false)
}

// FistLandmarks returns a hand with every finger curled.
func FistLandmarks() HandLandmarks {
	return SyntheticHand(false, false, false, false, false)
}

// Mirrored reflects h across the vertical centre line and flips its
// handedness, turning a right-hand fixture into the matching left hand.
func Mirrored(h HandLandmarks) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X = 1 - out.Points[i].X
	}
	if h.Handedness == Left {
		out.Handedness = Right
	} else {
		out.Handedness = Left
	}
	return out
}

// Rotated rotates every landmark of h by degrees (clockwise on screen)
// around the wrist.
func Rotated(h HandLandmarks, degrees float64) HandLandmarks {
	out := h
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	origin := h.Points[Wrist]
	for i, p := range h.Points {
		dx, dy := p.X-origin.X, p.Y-origin.Y
		out.Points[i].X = origin.X + dx*cos - dy*sin
		out.Points[i].Y = origin.Y + dx*sin + dy*cos
	}
	return out
}

// WithIndexTipAt translates h so the index fingertip sits at (x, y).
func WithIndexTipAt(h HandLandmarks, x, y float64) HandLandmarks {
	out := h
	dx := x - h.Points[IndexTip].X
	dy := y - h.Points[IndexTip].Y
	for i := range out.Points {
		out.Points[i].X += dx
		out.Points[i].Y += dy
	}
	return out
}
