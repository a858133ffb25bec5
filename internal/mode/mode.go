// Package mode holds the drawing-mode state machine. It turns a per-frame
// gesture stream into a debounced mode and edge-triggered palette advances.
package mode

import (
	"time"

	"github.com/ayusman/airdraw/internal/gesture"
)

// Mode is the active drawing behaviour.
type Mode string

const (
	Draw       Mode = "DRAW"
	Hover      Mode = "HOVER"
	Erase      Mode = "ERASE"
	ColorCycle Mode = "COLOR_CYCLE"
)

// FromGesture returns the mode a gesture asks for. NONE means HOVER.
func FromGesture(g gesture.Gesture) Mode {
	switch g {
	case gesture.Draw:
		return Draw
	case gesture.Erase:
		return Erase
	case gesture.ColorCycle:
		return ColorCycle
	default:
		return Hover
	}
}

// Config tunes the state machine.
type Config struct {
	// Cooldown is the minimum time between two accepted transitions.
	Cooldown time.Duration

	// RepeatColorCycle fires another palette advance each time a full
	// cooldown passes with the cycle gesture still held. When false the
	// palette advances once per entry into COLOR_CYCLE.
	RepeatColorCycle bool
}

// DefaultConfig returns the tuning used by the drawing pipeline.
func DefaultConfig() Config {
	return Config{
		Cooldown:         500 * time.Millisecond,
		RepeatColorCycle: true,
	}
}

// Transition is the (from, to) pair produced by every Step, along with the
// edge effects it carries.
type Transition struct {
	From    Mode            `json:"from"`
	To      Mode            `json:"to"`
	Gesture gesture.Gesture `json:"gesture"`
	// Advance is set when the palette should move to its next color.
	Advance bool `json:"advance"`
	// Held is set when the cooldown suppressed the gesture.
	Held bool `json:"held"`
}

// Changed reports whether the mode differs from the previous frame.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Entered reports whether this frame moved into m from another mode.
func (t Transition) Entered(m Mode) bool {
	return t.From != m && t.To == m
}

// Machine is the mode state machine. It is not safe for concurrent use; the
// pipeline goroutine owns it.
type Machine struct {
	cfg        Config
	mode       Mode
	lastChange time.Time
	armed      bool
}

// New creates a machine in HOVER whose cooldown starts at now.
func New(cfg Config, now time.Time) *Machine {
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	return &Machine{
		cfg:        cfg,
		mode:       Hover,
		lastChange: now,
		armed:      true,
	}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Reset returns to HOVER after hand tracking is lost and re-arms the
// color-cycle trigger. The cooldown keeps counting from the last accepted
// transition, so a brief dropout does not delay reacquisition.
func (m *Machine) Reset() {
	m.mode = Hover
	m.armed = true
}

// Step feeds one frame's gesture into the machine.
func (m *Machine) Step(g gesture.Gesture, now time.Time) Transition {
	prev := m.mode

	if now.Sub(m.lastChange) < m.cfg.Cooldown {
		return Transition{From: prev, To: prev, Gesture: g, Held: true}
	}

	next := FromGesture(g)
	t := Transition{From: prev, To: next, Gesture: g}

	switch g {
	case gesture.ColorCycle:
		if m.armed || m.cfg.RepeatColorCycle {
			t.Advance = true
			m.armed = false
			m.lastChange = now
		}
	case gesture.None:
		// Noise between two cycle gestures must not count as leaving.
	default:
		m.armed = true
	}

	if next != prev {
		m.lastChange = now
	}
	m.mode = next

	return t
}
