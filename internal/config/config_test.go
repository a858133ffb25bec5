package config

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	sc, err := cfg.Session()
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if len(sc.Swatches) != 10 {
		t.Errorf("default palette has %d colors, want 10", len(sc.Swatches))
	}
	if sc.Swatches[8].Color != (color.RGBA{255, 165, 0, 255}) {
		t.Errorf("orange = %v", sc.Swatches[8].Color)
	}
	if sc.Mode.Cooldown != 500*time.Millisecond {
		t.Errorf("cooldown = %v, want 500ms", sc.Mode.Cooldown)
	}
	if !sc.Classifier.Mirrored {
		t.Error("default camera is mirrored, classifier should be too")
	}
}

func TestLoad_MissingOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml"), false); err == nil {
		t.Error("expected an error for a missing explicit config")
	}
}

func TestLoad_Overlay(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/tmp/airdraw-test"

[mode]
cooldown = "250ms"
repeat_color_cycle = false

[brush]
thickness = 12
smoothing = 0.5

[palette]
background = "#000000"

[[palette.colors]]
name = "Teal"
color = "#008080"

[[palette.colors]]
name = "Pink"
color = "#ffc0cb"
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.DataDir = "/tmp/airdraw-test"
	want.Mode.Cooldown = Duration{250 * time.Millisecond}
	want.Mode.RepeatColorCycle = false
	want.Brush.Thickness = 12
	want.Brush.Smoothing = 0.5
	want.Palette.Colors = []SwatchConfig{
		{Name: "Teal", Color: "#008080"},
		{Name: "Pink", Color: "#ffc0cb"},
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	sc, err := cfg.Session()
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sc.Swatches[0].Color != (color.RGBA{0, 128, 128, 255}) {
		t.Errorf("teal = %v", sc.Swatches[0].Color)
	}
	if got := cfg.SaveDir(); got != filepath.Join("/tmp/airdraw-test", "drawings") {
		t.Errorf("SaveDir() = %s", got)
	}
}

func TestLoad_PaletteColors(t *testing.T) {
	t.Run("nameless swatch is named by its color", func(t *testing.T) {
		path := writeConfig(t, "[[palette.colors]]\ncolor = \"#123456\"\n")

		cfg, err := Load(path, false)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		want := []SwatchConfig{{Color: "#123456"}}
		if diff := cmp.Diff(want, cfg.Palette.Colors); diff != "" {
			t.Errorf("Palette.Colors mismatch (-want +got):\n%s", diff)
		}

		sc, err := cfg.Session()
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if len(sc.Swatches) != 1 || sc.Swatches[0].Name != "#123456" {
			t.Errorf("swatches = %+v, want one named #123456", sc.Swatches)
		}
	})

	t.Run("palette without colors keeps the defaults", func(t *testing.T) {
		path := writeConfig(t, "[palette]\nbackground = \"#101010\"\n")

		cfg, err := Load(path, false)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(Default().Palette.Colors, cfg.Palette.Colors); diff != "" {
			t.Errorf("Palette.Colors mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", `[mode`, "parse"},
		{"unknown key", "[brush]\nwidth = 3\n", "unknown config keys"},
		{"bad duration", "[mode]\ncooldown = \"soon\"\n", "parse"},
		{"bad color", "[[palette.colors]]\nname = \"x\"\ncolor = \"nope\"\n", "invalid color"},
		{"swatch is background", "[[palette.colors]]\nname = \"Black\"\ncolor = \"#000000\"\n", "background"},
		{"epsilon", "[gesture]\nepsilon = 0.5\n", "epsilon"},
		{"backend", "[detector]\nbackend = \"opencl\"\n", "backend"},
		{"failures", "[pipeline]\nmax_consecutive_failures = 0\n", "max_consecutive_failures"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), false)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(buf.String(), `cooldown = "500ms"`) {
		t.Errorf("encoded config lacks the cooldown string:\n%s", buf.String())
	}

	cfg, err := Load(writeConfig(t, buf.String()), false)
	if err != nil {
		t.Fatalf("Load(encoded) error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
