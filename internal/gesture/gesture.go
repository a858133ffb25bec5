package gesture

// Gesture is the symbol derived from a single frame's finger state.
type Gesture string

const (
	Draw       Gesture = "DRAW"
	Hover      Gesture = "HOVER"
	Erase      Gesture = "ERASE"
	ColorCycle Gesture = "COLOR_CYCLE"
	None       Gesture = "NONE"
)

var (
	drawPattern  = FingerState{Index: true}
	hoverPattern = FingerState{Index: true, Middle: true}
	erasePattern = FingerState{Thumb: true, Index: true, Middle: true, Ring: true, Pinky: true}
	cyclePattern = FingerState{Thumb: true}
)

// Map returns the gesture for f. Patterns must match exactly; a pointing
// index finger with the thumb out is None, not Draw.
func Map(f FingerState) Gesture {
	switch f {
	case drawPattern:
		return Draw
	case hoverPattern:
		return Hover
	case erasePattern:
		return Erase
	case cyclePattern:
		return ColorCycle
	default:
		return None
	}
}
