package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ayusman/airdraw/internal/app"
	"github.com/ayusman/airdraw/internal/capture"
	"github.com/ayusman/airdraw/internal/config"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/display"
	"github.com/ayusman/airdraw/internal/plugin"
	"github.com/ayusman/airdraw/internal/server"
	"github.com/ayusman/airdraw/internal/store"
	"github.com/ayusman/airdraw/internal/tray"
)

type runOptions struct {
	camera   int
	addr     string
	detector string
	noWindow bool
	tray     bool
	noMirror bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the camera and start drawing",
		Long: `Start the drawing pipeline. Point with the index finger to draw, raise
index and middle fingers to hover, open the palm to erase and give a thumbs-up
to change color. In the window, c clears, s saves and q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg)
		},
	}

	opts.bind(cmd.Flags())
	return cmd
}

func (o *runOptions) bind(flags *pflag.FlagSet) {
	flags.IntVar(&o.camera, "camera", 0, "camera device index")
	flags.StringVar(&o.addr, "addr", "", `web viewer listen address, "" to disable`)
	flags.StringVar(&o.detector, "detector", "", "landmark backend: mediapipe or mock")
	flags.BoolVar(&o.noWindow, "no-window", false, "do not open the preview window")
	flags.BoolVar(&o.tray, "tray", false, "run from the system tray instead of a window")
	flags.BoolVar(&o.noMirror, "no-mirror", false, "do not flip the camera image")
}

// apply copies the flags the user set over cfg and revalidates it.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("camera") {
		cfg.Camera.Device = o.camera
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if flags.Changed("detector") {
		cfg.Detector.Backend = o.detector
	}
	if o.noWindow {
		cfg.Window.Enabled = false
	}
	if o.tray {
		cfg.Window.Tray = true
	}
	if o.noMirror {
		cfg.Camera.Mirror = false
	}
	// The tray owns the main thread, which the preview window also needs.
	if cfg.Window.Tray {
		cfg.Window.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func runPipeline(parent context.Context, cfg *config.Config) error {
	logger := loggerFromContext(parent)

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	plugins := plugin.NewManager(cfg.PluginDir(), plugin.NewExecutor(cfg.Plugins.Timeout.Duration), logger.WithPrefix("plugin"))
	if err := plugins.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.PluginDir(), "err", err)
	} else if n := len(plugins.List()); n > 0 {
		logger.Info("plugins loaded", "count", n)
	}

	det, err := newDetector(cfg)
	if err != nil {
		return err
	}

	var sink display.Sink = display.Headless{}
	if cfg.Window.Enabled {
		sink = display.NewWindow(cfg.Window.Title)
	}

	a, err := app.New(app.Options{
		Config: cfg,
		Camera: capture.NewCamera(capture.Options{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
			Mirror: cfg.Camera.Mirror,
		}),
		Detector: det,
		Sink:     sink,
		Store:    st,
		Plugins:  plugins,
		Logger:   logger,
	})
	if err != nil {
		det.Close()
		sink.Close()
		return err
	}
	defer a.Close()

	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	srvDone := make(chan error, 1)
	viewer := ""
	if cfg.Server.Addr != "" {
		webDir := findWebDir(cfg)
		srv := server.New(server.Config{
			StaticDir:  webDir,
			Store:      st,
			Slot:       a.Slot(),
			Controller: a,
			Logger:     logger.WithPrefix("http"),
		})
		viewer = viewerPage(cfg.Server.Addr, webDir)
		go func() {
			err := srv.ListenAndServe(ctx, cfg.Server.Addr)
			if err != nil {
				logger.Error("http server failed", "err", err)
				a.Stop()
			}
			srvDone <- err
		}()
		logger.Info("web viewer", "url", viewer)
	} else {
		srvDone <- nil
	}

	if cfg.Window.Tray {
		err = runWithTray(ctx, a, viewer, logger)
	} else {
		err = a.Run(ctx)
	}

	cancel()
	if srvErr := <-srvDone; err == nil && srvErr != nil {
		err = fmt.Errorf("http server: %w", srvErr)
	}
	return err
}

// runWithTray runs the pipeline in the background while the tray holds the
// main thread.
func runWithTray(ctx context.Context, a *app.App, viewer string, logger *log.Logger) error {
	t := tray.New(a.Enabled())
	t.OnToggle(a.SetEnabled)
	t.OnClear(func() {
		if err := a.Clear(ctx); err != nil {
			logger.Warn("clear failed", "err", err)
		}
	})
	t.OnSave(func() {
		d, err := a.Save(ctx)
		if err != nil {
			logger.Warn("save failed", "err", err)
			return
		}
		logger.Info("drawing saved", "path", d.CanvasPath)
	})
	if viewer != "" {
		t.OnViewer(func() {
			if err := openBrowser(viewer); err != nil {
				logger.Warn("failed to open browser", "url", viewer, "err", err)
			}
		})
	}
	t.OnQuit(a.Stop)

	errc := make(chan error, 1)
	go func() {
		errc <- a.Run(ctx)
		t.Quit()
	}()
	go t.Watch(ctx, a.Slot())

	t.Run()
	a.Stop()
	return <-errc
}

func newDetector(cfg *config.Config) (detector.Detector, error) {
	switch cfg.Detector.Backend {
	case "mock":
		return detector.NewMockDetector(), nil
	default:
		d, err := detector.NewMediaPipeDetector(cfg.DetectorConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to start hand detector: %w", err)
		}
		return d, nil
	}
}

// findWebDir returns the configured static directory or the first of
// "web", "../web" and <data-dir>/web that exists.
func findWebDir(cfg *config.Config) string {
	if cfg.Server.StaticDir != "" {
		return cfg.Server.StaticDir
	}
	for _, p := range []string{"web", "../web", filepath.Join(cfg.DataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

// viewerPage is the page the tray opens: the static viewer when one is
// served, otherwise the raw MJPEG stream.
func viewerPage(addr, webDir string) string {
	u := viewerURL(addr)
	if webDir == "" {
		u += "api/stream"
	}
	return u
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
