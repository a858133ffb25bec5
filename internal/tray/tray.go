// Package tray provides a system tray menu for a running airdraw session.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/airdraw/internal/session"
)

// statusInterval caps how often the status line is rewritten.
const statusInterval = 250 * time.Millisecond

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onClear  func()
	onSave   func()
	onViewer func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuViewer *systray.MenuItem
}

// New creates a new Tray instance. enabled is the initial tracking state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
	}
}

// OnToggle sets the callback function to be called when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnClear sets the callback for the Clear canvas item.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnSave sets the callback for the Save drawing item.
func (t *Tray) OnSave(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSave = fn
}

// OnViewer sets the callback for the Open viewer item. The item is hidden
// when no callback is set.
func (t *Tray) OnViewer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onViewer = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from any goroutine.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("airdraw")
	systray.SetTooltip("airdraw hand drawing")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand tracking")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(StatusLine(nil), "Current mode and color")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuClear := systray.AddMenuItem("Clear canvas", "Erase every stroke")
	menuSave := systray.AddMenuItem("Save drawing", "Write the canvas to the drawings folder")
	t.menuViewer = systray.AddMenuItem("Open viewer...", "Open the live view in a browser")
	if t.onViewer == nil {
		t.menuViewer.Hide()
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit airdraw")
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuClear.ClickedCh:
				t.call(func() func() { return t.onClear })
			case <-menuSave.ClickedCh:
				t.call(func() func() { return t.onSave })
			case <-t.menuViewer.ClickedCh:
				t.call(func() func() { return t.onViewer })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// call runs the callback returned by get without holding the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.call(func() func() { return t.onQuit })
	systray.Quit()
}

// SetEnabled syncs the toggle item with a change made elsewhere.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetStatus updates the status line from the latest frame.
func (t *Tray) SetStatus(st *session.FrameState) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(StatusLine(st))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Watch follows slot and keeps the status line current until ctx ends.
func (t *Tray) Watch(ctx context.Context, slot *session.Slot) {
	var seq uint64
	var last string
	for {
		f, err := slot.Next(ctx, seq)
		if err != nil {
			return
		}
		seq = f.Seq
		if line := StatusLine(&f.State); line != last {
			last = line
			t.SetStatus(&f.State)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(statusInterval):
		}
	}
}

// StatusLine renders a frame summary for the menu, e.g. "DRAW · Red".
func StatusLine(st *session.FrameState) string {
	if st == nil {
		return "Waiting for camera"
	}
	if !st.Hand {
		return fmt.Sprintf("%s · %s · no hand", st.Mode, st.Color)
	}
	return fmt.Sprintf("%s · %s", st.Mode, st.Color)
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}
