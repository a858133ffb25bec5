// Package display shows composited frames and turns key presses into
// pipeline commands.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Command is a user request raised by a sink.
type Command int

const (
	None Command = iota
	Clear
	Save
	Quit
)

func (c Command) String() string {
	switch c {
	case Clear:
		return "clear"
	case Save:
		return "save"
	case Quit:
		return "quit"
	default:
		return "none"
	}
}

const keyEsc = 27

// KeyCommand maps a key code from WaitKey to a command.
func KeyCommand(key int) Command {
	switch key {
	case 'c', 'C':
		return Clear
	case 's', 'S':
		return Save
	case 'q', 'Q', keyEsc:
		return Quit
	default:
		return None
	}
}

// Sink receives one output frame per pipeline iteration.
type Sink interface {
	Show(frame gocv.Mat) Command
	Close() error
}

// Window shows frames in an OpenCV window. It must be created and used on
// the same OS thread.
type Window struct {
	win   *gocv.Window
	delay int
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title), delay: 1}
}

// Show draws frame and polls the keyboard once.
func (w *Window) Show(frame gocv.Mat) Command {
	w.win.IMShow(frame)
	return KeyCommand(w.win.WaitKey(w.delay))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Headless discards frames. It is used when the output is only served over
// HTTP or the tray drives the session.
type Headless struct{}

func (Headless) Show(gocv.Mat) Command { return None }
func (Headless) Close() error          { return nil }

// MockSink records frames and replays scripted key presses.
type MockSink struct {
	mu     sync.Mutex
	shown  int
	keys   []int
	closed bool
}

// NewMockSink creates a sink that returns keys in order, one per frame.
func NewMockSink(keys ...int) *MockSink {
	return &MockSink{keys: keys}
}

// Show counts the frame and pops the next scripted key.
func (m *MockSink) Show(gocv.Mat) Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown++
	if len(m.keys) == 0 {
		return None
	}
	k := m.keys[0]
	m.keys = m.keys[1:]
	return KeyCommand(k)
}

// Shown returns how many frames were displayed.
func (m *MockSink) Shown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}

// Closed reports whether Close was called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
