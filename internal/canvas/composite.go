package canvas

import (
	"gocv.io/x/gocv"
)

// Composite lays canvas over live and writes the result into dst. A pixel
// is taken from canvas when it differs from background and from live
// otherwise; there is no blending. Neither input is modified.
func Composite(live, canvas gocv.Mat, background gocv.Scalar, dst *gocv.Mat) error {
	if live.Rows() != canvas.Rows() || live.Cols() != canvas.Cols() || live.Type() != canvas.Type() {
		return ErrSizeMismatch
	}

	unmarked := gocv.NewMat()
	defer unmarked.Close()
	gocv.InRangeWithScalar(canvas, background, background, &unmarked)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.BitwiseNot(unmarked, &mask)

	live.CopyTo(dst)
	canvas.CopyToWithMask(dst, mask)

	return nil
}
