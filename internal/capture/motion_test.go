package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func solid(t *testing.T, v float64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"default threshold", 1.0, 1.0},
		{"high threshold", 5.0, 5.0},
		{"zero falls back", 0, 1.0},
		{"negative falls back", -2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if md.Threshold() != tt.want {
				t.Errorf("Threshold() = %f, want %f", md.Threshold(), tt.want)
			}
		})
	}
}

func TestMotionDetector_FirstFrameCountsAsMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	if moved, pct := md.Detect(solid(t, 0)); !moved || pct != 100 {
		t.Errorf("first frame = (%v, %f), want (true, 100)", moved, pct)
	}
}

func TestMotionDetector_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := solid(t, 40)
	md.Detect(frame)
	if moved, pct := md.Detect(frame); moved {
		t.Errorf("identical frames reported motion, changed = %f", pct)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	md.Detect(solid(t, 0))
	moved, pct := md.Detect(solid(t, 255))
	if !moved {
		t.Errorf("black to white should detect motion, changed = %f", pct)
	}
	if pct < 50 {
		t.Errorf("changed = %f, expected > 50%% for black to white", pct)
	}
}

func TestMotionDetector_ResetAndClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	frame := solid(t, 0)

	md.Detect(frame)
	md.Reset()
	if moved, _ := md.Detect(frame); !moved {
		t.Error("first frame after Reset should count as motion")
	}

	md.Close()
	md.Close()
	if moved, _ := md.Detect(frame); !moved {
		t.Error("first frame after Close should count as motion")
	}
	md.Close()
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	empty := gocv.NewMat()
	defer empty.Close()
	if moved, _ := md.Detect(empty); moved {
		t.Error("empty frame reported motion")
	}
}
