package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/airdraw/internal/plugin"
	"github.com/ayusman/airdraw/internal/store"
)

type commandKind int

const (
	cmdClear commandKind = iota
	cmdSave
	cmdCanvasPNG
)

func (k commandKind) String() string {
	switch k {
	case cmdClear:
		return "clear"
	case cmdSave:
		return "save"
	case cmdCanvasPNG:
		return "canvas"
	default:
		return "unknown"
	}
}

type command struct {
	kind  commandKind
	reply chan commandResult
}

type commandResult struct {
	drawing *store.Drawing
	png     []byte
	err     error
}

// Clear wipes the canvas on the pipeline goroutine.
func (a *App) Clear(ctx context.Context) error {
	_, err := a.submit(ctx, cmdClear)
	return err
}

// Save writes the canvas and the last composited frame to the save
// directory, records the drawing and runs export plugins.
func (a *App) Save(ctx context.Context) (*store.Drawing, error) {
	res, err := a.submit(ctx, cmdSave)
	return res.drawing, err
}

// CanvasPNG returns the canvas encoded as PNG.
func (a *App) CanvasPNG(ctx context.Context) ([]byte, error) {
	res, err := a.submit(ctx, cmdCanvasPNG)
	return res.png, err
}

func (a *App) submit(ctx context.Context, kind commandKind) (commandResult, error) {
	if !a.running.Load() {
		return commandResult{}, ErrNotRunning
	}

	cmd := command{kind: kind, reply: make(chan commandResult, 1)}
	select {
	case a.cmds <- cmd:
	case <-a.done:
		return commandResult{}, ErrNotRunning
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-a.done:
		return commandResult{}, ErrNotRunning
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

// runCommands executes everything queued without blocking.
func (a *App) runCommands() {
	for {
		select {
		case cmd := <-a.cmds:
			cmd.reply <- a.execute(cmd.kind)
		default:
			return
		}
	}
}

// drainCommands fails whatever is still queued when Run exits.
func (a *App) drainCommands() {
	for {
		select {
		case cmd := <-a.cmds:
			cmd.reply <- commandResult{err: ErrNotRunning}
		default:
			return
		}
	}
}

func (a *App) execute(kind commandKind) commandResult {
	a.logger.Debug("command", "kind", kind)
	switch kind {
	case cmdClear:
		a.clear()
		return commandResult{}
	case cmdSave:
		d, err := a.save()
		return commandResult{drawing: d, err: err}
	case cmdCanvasPNG:
		data, err := a.canvasPNG()
		return commandResult{png: data, err: err}
	default:
		return commandResult{err: fmt.Errorf("unknown command %d", kind)}
	}
}

func (a *App) clear() {
	a.session.ClearCanvas()
	a.logger.Info("canvas cleared")
	a.dispatch(plugin.EventCleared, nil)
}

func (a *App) canvasPNG() ([]byte, error) {
	if !a.session.HasCanvas() {
		return nil, ErrNoCanvas
	}
	snap := a.session.CanvasSnapshot()
	defer snap.Close()
	return encodePNG(snap)
}

// Stamp formats t as the identifier used in saved file names, for example
// 20260114_093015_042.
func Stamp(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}

func (a *App) save() (*store.Drawing, error) {
	if !a.session.HasCanvas() {
		return nil, ErrNoCanvas
	}

	now := a.clock()
	stamp := Stamp(now)
	dir := a.cfg.SaveDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	snap := a.session.CanvasSnapshot()
	defer snap.Close()
	combined := a.session.OutputSnapshot()
	defer combined.Close()

	d := &store.Drawing{
		Stamp:        stamp,
		CanvasPath:   filepath.Join(dir, "drawing_"+stamp+".png"),
		Width:        snap.Cols(),
		Height:       snap.Rows(),
		PaletteIndex: a.session.Palette().Index(),
		Color:        a.session.Palette().Current().Name,
		CreatedAt:    now,
	}
	if err := writePNG(d.CanvasPath, snap); err != nil {
		return nil, err
	}
	if !combined.Empty() {
		d.CombinedPath = filepath.Join(dir, "combined_"+stamp+".png")
		if err := writePNG(d.CombinedPath, combined); err != nil {
			removeFiles(d.CanvasPath)
			return nil, err
		}
	}

	if a.store != nil {
		if err := a.store.Drawings().Create(d); err != nil {
			removeFiles(d.CanvasPath, d.CombinedPath)
			return nil, fmt.Errorf("failed to record drawing: %w", err)
		}
	} else {
		d.ID = uuid.NewString()
	}

	a.logger.Info("drawing saved", "id", d.ID, "path", d.CanvasPath)
	a.dispatch(plugin.EventSaved, d)
	return d, nil
}

// removeFiles drops the images of a save that did not complete.
func removeFiles(paths ...string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}

func writePNG(path string, m gocv.Mat) error {
	data, err := encodePNG(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// dispatch runs plugins for event off the pipeline goroutine. Run waits for
// them before returning.
func (a *App) dispatch(event plugin.Event, d *store.Drawing) {
	if a.plugins == nil {
		return
	}

	req := plugin.Request{Event: event}
	if d != nil {
		req.Drawing = &plugin.Drawing{
			ID:           d.ID,
			Stamp:        d.Stamp,
			CanvasPath:   d.CanvasPath,
			CombinedPath: d.CombinedPath,
			Width:        d.Width,
			Height:       d.Height,
			CreatedAt:    d.CreatedAt,
		}
	}

	ctx := a.hookCtx
	if ctx == nil {
		ctx = context.Background()
	}

	a.hooks.Add(1)
	go func() {
		defer a.hooks.Done()
		results := a.plugins.Dispatch(ctx, req)
		if a.store == nil || d == nil {
			return
		}
		for _, r := range results {
			run := &store.PluginRun{DrawingID: d.ID, PluginName: r.Plugin, Success: r.Err == nil}
			if r.Err != nil {
				run.Error = r.Err.Error()
			}
			if err := a.store.PluginRuns().Record(run); err != nil {
				a.logger.Warn("failed to record plugin run", "plugin", r.Plugin, "err", err)
			}
		}
	}()
}
