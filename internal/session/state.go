package session

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/airdraw/internal/cursor"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/gesture"
	"github.com/ayusman/airdraw/internal/mode"
)

// FrameState summarises one processed frame.
type FrameState struct {
	Time       time.Time           `json:"time"`
	Hand       bool                `json:"hand"`
	Handedness detector.Handedness `json:"handedness,omitempty"`
	// Fingers is the thumb-first extension pattern, e.g. "01000".
	Fingers      string          `json:"fingers,omitempty"`
	Gesture      gesture.Gesture `json:"gesture"`
	From         mode.Mode       `json:"from,omitempty"`
	Mode         mode.Mode       `json:"mode"`
	Advanced     bool            `json:"advanced,omitempty"`
	Cursor       *cursor.Point   `json:"cursor,omitempty"`
	Stroke       bool            `json:"stroke,omitempty"`
	Segment      bool            `json:"segment,omitempty"`
	PaletteIndex int             `json:"paletteIndex"`
	Color        string          `json:"color"`
}

// Frame is one published pipeline output.
type Frame struct {
	Seq   uint64     `json:"seq"`
	JPEG  []byte     `json:"-"`
	State FrameState `json:"state"`
}

// Slot hands the latest output from the pipeline to readers on other
// goroutines. It holds one frame; publishing replaces whatever was there.
type Slot struct {
	mu      sync.Mutex
	latest  Frame
	changed chan struct{}
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{changed: make(chan struct{})}
}

// Publish stores a frame and wakes any waiting readers. The slot keeps
// jpeg; the caller must not modify it afterwards.
func (s *Slot) Publish(jpeg []byte, st FrameState) uint64 {
	s.mu.Lock()
	s.latest = Frame{Seq: s.latest.Seq + 1, JPEG: jpeg, State: st}
	seq := s.latest.Seq
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
	return seq
}

// Latest returns the newest frame, or false before the first publish.
func (s *Slot) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latest.Seq > 0
}

// Next blocks until a frame newer than after is published. Frames published
// in between are skipped.
func (s *Slot) Next(ctx context.Context, after uint64) (Frame, error) {
	for {
		s.mu.Lock()
		if s.latest.Seq > after {
			f := s.latest
			s.mu.Unlock()
			return f, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-ch:
		}
	}
}
