// Package gesture turns one hand's landmarks into a finger-state vector and
// maps that vector onto the drawing gestures.
package gesture

import (
	"strings"

	"github.com/ayusman/airdraw/internal/detector"
)

// FingerState records which fingers are extended in a single frame.
type FingerState struct {
	Thumb  bool `json:"thumb"`
	Index  bool `json:"index"`
	Middle bool `json:"middle"`
	Ring   bool `json:"ring"`
	Pinky  bool `json:"pinky"`
}

// Array returns the five flags ordered thumb to pinky.
func (f FingerState) Array() [5]bool {
	return [5]bool{f.Thumb, f.Index, f.Middle, f.Ring, f.Pinky}
}

// FingerStateFromArray is the inverse of Array.
func FingerStateFromArray(a [5]bool) FingerState {
	return FingerState{Thumb: a[0], Index: a[1], Middle: a[2], Ring: a[3], Pinky: a[4]}
}

// Count returns the number of extended fingers.
func (f FingerState) Count() int {
	n := 0
	for _, up := range f.Array() {
		if up {
			n++
		}
	}
	return n
}

// String renders the state as five digits, thumb first, e.g. "01000".
func (f FingerState) String() string {
	var b strings.Builder
	for _, up := range f.Array() {
		if up {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Config tunes the extension heuristic.
type Config struct {
	// Epsilon is the margin, in normalized image units, by which a tip must
	// clear its reference joint to count as extended.
	Epsilon float64

	// InvertVertical is for hands pointing down the frame. A downward hand is
	// an upright one turned half a circle, so both the finger and the thumb
	// comparisons flip.
	InvertVertical bool

	// Mirrored reports whether frames are flipped horizontally (selfie view)
	// before detection. It decides which side an extended thumb points to.
	Mirrored bool
}

// DefaultConfig returns the thresholds used by the drawing pipeline.
func DefaultConfig() Config {
	return Config{
		Epsilon:  0.01,
		Mirrored: true,
	}
}

// Classifier computes FingerState from landmark geometry. It is stateless.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier. A negative epsilon is treated as zero.
func NewClassifier(cfg Config) *Classifier {
	if cfg.Epsilon < 0 {
		cfg.Epsilon = 0
	}
	return &Classifier{cfg: cfg}
}

// fingerJoints pairs each non-thumb tip with the PIP joint it is compared to.
var fingerJoints = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// Classify reports which fingers of hand are extended.
//
// Non-thumb fingers compare the tip against the PIP joint on the vertical
// axis. The thumb flexes sideways, so it compares tip and MCP on the
// horizontal axis, mirrored by handedness. This is a heuristic tied to an
// upright hand; strongly rotated poses misclassify.
func (c *Classifier) Classify(hand *detector.HandLandmarks) FingerState {
	var up [5]bool

	up[0] = c.thumbExtended(hand)

	for i, j := range fingerJoints {
		tip := hand.Points[j[0]].Y
		pip := hand.Points[j[1]].Y
		if c.cfg.InvertVertical {
			up[i+1] = tip-pip > c.cfg.Epsilon
		} else {
			up[i+1] = pip-tip > c.cfg.Epsilon
		}
	}

	return FingerStateFromArray(up)
}

func (c *Classifier) thumbExtended(hand *detector.HandLandmarks) bool {
	tip := hand.Points[detector.ThumbTip].X
	mcp := hand.Points[detector.ThumbMCP].X

	// In a mirrored frame a right thumb opens toward smaller x.
	towardSmallerX := hand.Handedness != detector.Left
	if !c.cfg.Mirrored {
		towardSmallerX = !towardSmallerX
	}
	if c.cfg.InvertVertical {
		towardSmallerX = !towardSmallerX
	}

	if towardSmallerX {
		return mcp-tip > c.cfg.Epsilon
	}
	return tip-mcp > c.cfg.Epsilon
}
