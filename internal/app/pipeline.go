package app

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/airdraw/internal/capture"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/display"
	"github.com/ayusman/airdraw/internal/session"
)

// Run processes frames until ctx is cancelled, Stop is called, the display
// asks to quit or a non-looping source runs dry. It returns an error
// wrapping ErrSustainedFailure when the camera or detector keeps failing.
//
// Each iteration:
//  1. Run queued commands (clear, save, snapshot)
//  2. Read a frame
//  3. Skip the detector when nothing moves and no hand was seen last frame
//  4. Step the session and encode the output
//  5. Publish to the slot and show it, acting on any key pressed
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(a.done)

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("error closing camera", "err", err)
		}
	}()

	a.hookCtx = context.WithoutCancel(ctx)
	a.restorePalette()
	a.running.Store(true)
	a.logger.Info("pipeline started")

	defer func() {
		a.running.Store(false)
		a.drainCommands()
		a.persistPalette()
		a.hooks.Wait()
		a.logger.Info("pipeline stopped", "frames", a.frames.Load())
	}()

	var (
		failures int
		sawHand  bool
	)
	maxFailures := a.cfg.Pipeline.MaxConsecutiveFailures

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		a.runCommands()
		if a.session.Stopped() {
			return nil
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrNoFrames) {
			a.logger.Info("frame source exhausted")
			return nil
		}
		if err != nil {
			failures++
			a.logger.Warn("error reading frame", "err", err, "consecutive", failures)
			if failures >= maxFailures {
				return fmt.Errorf("%w: %d reads in a row: %v", ErrSustainedFailure, failures, err)
			}
			continue
		}

		st, cmd, err := a.processFrame(frame, sawHand)
		frame.Close()
		if err != nil {
			failures++
			a.logger.Warn("frame skipped", "err", err, "consecutive", failures)
			if failures >= maxFailures {
				return fmt.Errorf("%w: %d frames in a row: %v", ErrSustainedFailure, failures, err)
			}
			continue
		}
		failures = 0
		sawHand = st.Hand
		a.frames.Add(1)

		switch cmd {
		case display.Clear:
			a.clear()
		case display.Save:
			if _, err := a.save(); err != nil {
				a.logger.Error("save failed", "err", err)
			}
		case display.Quit:
			a.logger.Info("quit requested from display")
			a.session.RequestStop()
		}
	}
}

// processFrame runs one frame through detection and the session, then
// publishes and displays the result.
func (a *App) processFrame(frame *gocv.Mat, sawHand bool) (session.FrameState, display.Command, error) {
	hands, err := a.detect(frame, sawHand)
	if err != nil {
		return session.FrameState{}, display.None, fmt.Errorf("detector: %w", err)
	}

	out, st, err := a.session.Step(*frame, hands, a.clock())
	if err != nil {
		return st, display.None, err
	}

	jpeg, err := encodeJPEG(out, a.cfg.Pipeline.JPEGQuality)
	if err != nil {
		return st, display.None, err
	}
	a.slot.Publish(jpeg, st)

	return st, a.sink.Show(out), nil
}

func (a *App) detect(frame *gocv.Mat, sawHand bool) ([]detector.HandLandmarks, error) {
	if !a.enabled.Load() {
		return nil, nil
	}
	if a.motion != nil {
		moved, _ := a.motion.Detect(*frame)
		if !moved && !sawHand {
			return nil, nil
		}
	}
	return a.detector.Detect(frame)
}

func encodeJPEG(m gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

func encodePNG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
