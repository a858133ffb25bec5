// Package app drives the airdraw pipeline: it reads camera frames, runs the
// landmark detector, steps the drawing session and fans the result out to
// the display, the web viewer and export plugins.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ayusman/airdraw/internal/capture"
	"github.com/ayusman/airdraw/internal/config"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/display"
	"github.com/ayusman/airdraw/internal/plugin"
	"github.com/ayusman/airdraw/internal/session"
	"github.com/ayusman/airdraw/internal/store"
)

var (
	// ErrNotRunning is returned by commands issued while Run is not active.
	ErrNotRunning = errors.New("pipeline is not running")
	// ErrSustainedFailure ends Run after too many consecutive bad frames.
	ErrSustainedFailure = errors.New("sustained frame failure")
	// ErrAlreadyStarted is returned when Run is called twice.
	ErrAlreadyStarted = errors.New("pipeline already started")
	// ErrNoCanvas is returned by Save and CanvasPNG before the first frame.
	ErrNoCanvas = errors.New("no frame processed yet")
)

// Options wires the pipeline. Camera, Detector and Config are required;
// the rest may be nil.
type Options struct {
	Config   *config.Config
	Camera   capture.Camera
	Detector detector.Detector
	// Sink defaults to display.Headless.
	Sink    display.Sink
	Store   *store.Store
	Plugins *plugin.Manager
	Logger  *log.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// App is one pipeline run. It is created by New and used by a single call
// to Run; commands may be issued from any goroutine while Run is active.
type App struct {
	cfg      *config.Config
	camera   capture.Camera
	detector detector.Detector
	sink     display.Sink
	store    *store.Store
	plugins  *plugin.Manager
	logger   *log.Logger
	clock    func() time.Time

	session *session.Session
	motion  *capture.MotionDetector
	slot    *session.Slot

	cmds    chan command
	done    chan struct{}
	started atomic.Bool
	running atomic.Bool
	enabled atomic.Bool
	frames  atomic.Uint64

	// hooks tracks plugin dispatches still in flight; hookCtx is detached
	// from the Run context.
	hooks   sync.WaitGroup
	hookCtx context.Context
}

// New builds the session and pipeline state from opts.
func New(opts Options) (*App, error) {
	if opts.Config == nil || opts.Camera == nil || opts.Detector == nil {
		return nil, errors.New("app: config, camera and detector are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sink := opts.Sink
	if sink == nil {
		sink = display.Headless{}
	}

	sc, err := opts.Config.Session()
	if err != nil {
		return nil, err
	}
	sc.Logger = logger.WithPrefix("session")

	sess, err := session.New(sc, clock())
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      opts.Config,
		camera:   opts.Camera,
		detector: opts.Detector,
		sink:     sink,
		store:    opts.Store,
		plugins:  opts.Plugins,
		logger:   logger,
		clock:    clock,
		session:  sess,
		slot:     session.NewSlot(),
		cmds:     make(chan command, 8),
		done:     make(chan struct{}),
	}
	if opts.Config.Pipeline.MotionGate {
		a.motion = capture.NewMotionDetector(opts.Config.Pipeline.MotionThreshold)
	}
	a.enabled.Store(true)
	return a, nil
}

// SetEnabled turns hand tracking on or off. While off, frames still reach
// the display but are treated as having no hand.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.logger.Info("tracking", "enabled", enabled)
	}
}

// Enabled reports whether hand tracking is on.
func (a *App) Enabled() bool {
	return a.enabled.Load()
}

// Running reports whether Run is active.
func (a *App) Running() bool {
	return a.running.Load()
}

// Frames returns the number of frames processed so far.
func (a *App) Frames() uint64 {
	return a.frames.Load()
}

// Slot returns the latest-output handoff read by the server.
func (a *App) Slot() *session.Slot {
	return a.slot
}

// Store returns the drawing store, which may be nil.
func (a *App) Store() *store.Store {
	return a.store
}

// Stop asks Run to return after the current frame. It is safe to call from
// any goroutine and at any time.
func (a *App) Stop() {
	a.session.RequestStop()
}

// Done is closed when Run returns.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Close releases the session, detector and motion state. Call it after Run
// has returned.
func (a *App) Close() error {
	var errs []error
	if a.motion != nil {
		a.motion.Close()
	}
	if err := a.detector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.session.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) restorePalette() {
	if a.store == nil {
		return
	}
	idx, err := a.store.Settings().GetInt(store.SettingPaletteIndex)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		a.logger.Warn("failed to read palette index", "err", err)
		return
	}
	if err := a.session.Palette().SetIndex(idx); err != nil {
		a.logger.Warn("ignoring stored palette index", "index", idx, "err", err)
		return
	}
	a.logger.Debug("palette restored", "index", idx)
}

func (a *App) persistPalette() {
	if a.store == nil {
		return
	}
	idx := a.session.Palette().Index()
	if err := a.store.Settings().SetInt(store.SettingPaletteIndex, idx); err != nil {
		a.logger.Warn("failed to store palette index", "err", err)
	}
}
