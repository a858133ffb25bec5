// Package config loads the airdraw TOML configuration. A file only needs the
// keys it changes; everything else keeps the value from Default.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ayusman/airdraw/internal/canvas"
	"github.com/ayusman/airdraw/internal/detector"
	"github.com/ayusman/airdraw/internal/gesture"
	"github.com/ayusman/airdraw/internal/mode"
	"github.com/ayusman/airdraw/internal/session"
)

// FileName is the config file looked up in the data directory.
const FileName = "config.toml"

// Duration is a time.Duration written as a string such as "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root configuration.
type Config struct {
	DataDir  string         `toml:"data_dir"`
	Camera   CameraConfig   `toml:"camera"`
	Detector DetectorConfig `toml:"detector"`
	Gesture  GestureConfig  `toml:"gesture"`
	Mode     ModeConfig     `toml:"mode"`
	Brush    BrushConfig    `toml:"brush"`
	Palette  PaletteConfig  `toml:"palette"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`
	Window   WindowConfig   `toml:"window"`
	Plugins  PluginConfig   `toml:"plugins"`
}

type CameraConfig struct {
	Device int     `toml:"device"`
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	FPS    float64 `toml:"fps"`
	// Mirror flips frames horizontally so the view behaves like a mirror.
	Mirror bool `toml:"mirror"`
}

type DetectorConfig struct {
	// Backend is "mediapipe" or "mock".
	Backend               string  `toml:"backend"`
	MaxHands              int     `toml:"max_hands"`
	MinConfidence         float64 `toml:"min_confidence"`
	MinTrackingConfidence float64 `toml:"min_tracking_confidence"`
	ModelComplexity       int     `toml:"model_complexity"`
}

type GestureConfig struct {
	Epsilon        float64 `toml:"epsilon"`
	InvertVertical bool    `toml:"invert_vertical"`
}

type ModeConfig struct {
	Cooldown         Duration `toml:"cooldown"`
	RepeatColorCycle bool     `toml:"repeat_color_cycle"`
}

type BrushConfig struct {
	Thickness       int     `toml:"thickness"`
	EraserThickness int     `toml:"eraser_thickness"`
	MaxSegment      float64 `toml:"max_segment"`
	Smoothing       float64 `toml:"smoothing"`
	Cursor          bool    `toml:"cursor"`
	CursorSize      int     `toml:"cursor_size"`
}

// SwatchConfig is one palette entry with a "#rrggbb" color.
type SwatchConfig struct {
	Name  string `toml:"name"`
	Color string `toml:"color"`
}

type PaletteConfig struct {
	Background string         `toml:"background"`
	Colors     []SwatchConfig `toml:"colors"`
}

type PipelineConfig struct {
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
	JPEGQuality            int `toml:"jpeg_quality"`
	// MotionGate skips hand detection while nothing moves and no hand was
	// seen on the previous frame.
	MotionGate      bool    `toml:"motion_gate"`
	MotionThreshold float64 `toml:"motion_threshold"`
}

type ServerConfig struct {
	// Addr is the HTTP listen address. Empty disables the server.
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type WindowConfig struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
	Tray    bool   `toml:"tray"`
}

type PluginConfig struct {
	Dir     string   `toml:"dir"`
	Timeout Duration `toml:"timeout"`
}

// DefaultDir returns ~/.airdraw, or .airdraw when there is no home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".airdraw"
	}
	return filepath.Join(home, ".airdraw")
}

// Default returns the built-in configuration.
func Default() *Config {
	sc := session.DefaultConfig()
	dc := detector.DefaultConfig()

	colors := make([]SwatchConfig, 0, len(sc.Swatches))
	for _, s := range sc.Swatches {
		colors = append(colors, SwatchConfig{Name: s.Name, Color: hexOf(s.Color)})
	}

	return &Config{
		DataDir: DefaultDir(),
		Camera: CameraConfig{
			Device: 0,
			Width:  1280,
			Height: 720,
			FPS:    30,
			Mirror: true,
		},
		Detector: DetectorConfig{
			Backend:               "mediapipe",
			MaxHands:              dc.MaxHands,
			MinConfidence:         dc.MinConfidence,
			MinTrackingConfidence: dc.MinTrackingConf,
			ModelComplexity:       dc.ModelComplexity,
		},
		Gesture: GestureConfig{
			Epsilon:        sc.Classifier.Epsilon,
			InvertVertical: sc.Classifier.InvertVertical,
		},
		Mode: ModeConfig{
			Cooldown:         Duration{sc.Mode.Cooldown},
			RepeatColorCycle: sc.Mode.RepeatColorCycle,
		},
		Brush: BrushConfig{
			Thickness:       sc.Renderer.BrushThickness,
			EraserThickness: sc.Renderer.EraserThickness,
			MaxSegment:      sc.Renderer.MaxSegment,
			Smoothing:       sc.Smoothing,
			Cursor:          sc.Cursor,
			CursorSize:      sc.Renderer.CursorSize,
		},
		Palette: PaletteConfig{
			Background: hexOf(sc.Background),
			Colors:     colors,
		},
		Pipeline: PipelineConfig{
			MaxConsecutiveFailures: 30,
			JPEGQuality:            80,
			MotionGate:             true,
			MotionThreshold:        1.0,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8420",
		},
		Window: WindowConfig{
			Enabled: true,
			Title:   "airdraw",
		},
		Plugins: PluginConfig{
			Timeout: Duration{5 * time.Second},
		},
	}
}

// Load reads path over the defaults and validates the result. A missing
// file is not an error when optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.decode(string(data)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// decode overlays data on c. A file that lists palette colors replaces the
// whole list; toml would otherwise reuse the existing entries and keep their
// names.
func (c *Config) decode(data string) error {
	colors := c.Palette.Colors
	c.Palette.Colors = nil
	md, err := toml.Decode(data, c)
	if err != nil {
		c.Palette.Colors = colors
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if !md.IsDefined("palette", "colors") {
		c.Palette.Colors = colors
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(names, ", "))
	}
	return nil
}

// Validate checks ranges and that the palette parses.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		return errors.New("camera width, height and fps must be non-negative")
	}
	switch c.Detector.Backend {
	case "mediapipe", "mock":
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector.Backend)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1, got %f", c.Detector.MinConfidence)
	}
	if c.Gesture.Epsilon < 0 || c.Gesture.Epsilon > 0.2 {
		return fmt.Errorf("gesture.epsilon must be between 0 and 0.2, got %f", c.Gesture.Epsilon)
	}
	if c.Mode.Cooldown.Duration < 0 {
		return fmt.Errorf("mode.cooldown must be non-negative, got %s", c.Mode.Cooldown)
	}
	if c.Brush.Thickness < 1 || c.Brush.EraserThickness < 1 {
		return errors.New("brush thickness and eraser_thickness must be at least 1")
	}
	if c.Pipeline.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("pipeline.max_consecutive_failures must be at least 1, got %d", c.Pipeline.MaxConsecutiveFailures)
	}
	if q := c.Pipeline.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("pipeline.jpeg_quality must be between 1 and 100, got %d", q)
	}

	sc, err := c.Session()
	if err != nil {
		return err
	}
	return sc.Validate()
}

// Session builds the drawing core configuration.
func (c *Config) Session() (session.Config, error) {
	bg, err := parseHex(c.Palette.Background)
	if err != nil {
		return session.Config{}, fmt.Errorf("palette.background: %w", err)
	}

	swatches := make([]canvas.Swatch, 0, len(c.Palette.Colors))
	for i, s := range c.Palette.Colors {
		col, err := parseHex(s.Color)
		if err != nil {
			return session.Config{}, fmt.Errorf("palette.colors[%d]: %w", i, err)
		}
		name := s.Name
		if name == "" {
			name = s.Color
		}
		swatches = append(swatches, canvas.Swatch{Name: name, Color: col})
	}

	return session.Config{
		Classifier: gesture.Config{
			Epsilon:        c.Gesture.Epsilon,
			InvertVertical: c.Gesture.InvertVertical,
			Mirrored:       c.Camera.Mirror,
		},
		Mode: mode.Config{
			Cooldown:         c.Mode.Cooldown.Duration,
			RepeatColorCycle: c.Mode.RepeatColorCycle,
		},
		Smoothing: c.Brush.Smoothing,
		Renderer: canvas.RendererConfig{
			BrushThickness:  c.Brush.Thickness,
			EraserThickness: c.Brush.EraserThickness,
			MaxSegment:      c.Brush.MaxSegment,
			CursorSize:      c.Brush.CursorSize,
		},
		Swatches:   swatches,
		Background: bg,
		Cursor:     c.Brush.Cursor,
	}, nil
}

// DetectorConfig returns the landmark model settings.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
		ModelComplexity: c.Detector.ModelComplexity,
	}
}

// DatabasePath is the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "airdraw.db")
}

// SaveDir is where saved drawings are written.
func (c *Config) SaveDir() string {
	return filepath.Join(c.DataDir, "drawings")
}

// PluginDir returns the configured plugin directory or the default inside
// the data directory.
func (c *Config) PluginDir() string {
	if c.Plugins.Dir != "" {
		return c.Plugins.Dir
	}
	return filepath.Join(c.DataDir, "plugins")
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func parseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func hexOf(c color.RGBA) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
