package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := NewMockCamera(SolidFrames(2, 64, 48, color.RGBA{10, 20, 30, 255}), false)
	defer cam.Release()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("read before Open() error = %v", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		if f.Cols() != 64 || f.Rows() != 48 {
			t.Errorf("frame %d size = %dx%d", i, f.Cols(), f.Rows())
		}
		if v := f.GetVecbAt(0, 0); v[0] != 30 || v[2] != 10 {
			t.Errorf("frame %d pixel = %v, want BGR of (10,20,30)", i, v)
		}
		f.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames after playback, got %v", err)
	}
	if cam.Reads() != 4 {
		t.Errorf("Reads() = %d, want 4", cam.Reads())
	}
}

func TestMockCamera_LoopAndFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := NewMockCamera(SolidFrames(1, 32, 32, color.RGBA{0, 0, 0, 255}), true)
	defer cam.Release()
	cam.Open()
	defer cam.Close()

	boom := errors.New("unplugged")
	cam.FailNext(2, boom)
	for i := 0; i < 2; i++ {
		if _, err := cam.ReadFrame(); !errors.Is(err, boom) {
			t.Errorf("read %d error = %v, want %v", i, err, boom)
		}
	}

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMirror(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 10, 20, gocv.MatTypeCV8UC3)
	defer m.Close()
	gocv.Line(&m, image.Pt(0, 0), image.Pt(0, 9), color.RGBA{255, 255, 255, 255}, 1)

	Mirror(&m)

	if v := m.GetVecbAt(5, 19); v[0] != 255 {
		t.Errorf("right column after mirror = %v, want white", v)
	}
	if v := m.GetVecbAt(5, 0); v[0] != 0 {
		t.Errorf("left column after mirror = %v, want black", v)
	}
}
