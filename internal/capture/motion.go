package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// motionWidth is the width frames are shrunk to before differencing.
	motionWidth = 160
	blurSize    = 7
	// diffThreshold is the per-pixel intensity change that counts as motion.
	diffThreshold = 25
)

// MotionDetector compares each frame with the previous one. The pipeline
// uses it to skip the landmark model while the scene is still.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of pixels change.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous frame and by what
// percentage of pixels. The first frame after creation or Reset only sets
// the baseline and reports motion, so a new scene is always examined.
func (m *MotionDetector) Detect(frame gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame.Empty() {
		return false, 0
	}

	small := gocv.NewMat()
	defer small.Close()
	h := frame.Rows() * motionWidth / frame.Cols()
	if h < 1 {
		h = 1
	}
	gocv.Resize(frame, &small, image.Pt(motionWidth, h), 0, 0, gocv.InterpolationArea)

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)

	if !m.initialized {
		gray.CopyTo(&m.prevGray)
		m.initialized = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prevGray, &diff)
	gocv.Threshold(diff, &diff, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Threshold returns the change percentage above which Detect reports motion.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Reset forgets the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
}

// Close releases the baseline frame. The detector may be used again after
// Close; it starts from a fresh baseline.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prevGray.Close()
	m.prevGray = gocv.NewMat()
	m.initialized = false
}
