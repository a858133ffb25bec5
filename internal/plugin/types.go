// Package plugin runs external export hooks after airdraw events, such as
// uploading or post-processing a saved drawing.
package plugin

import (
	"encoding/json"
	"time"
)

// Event names a hook point.
type Event string

const (
	// EventSaved fires after a drawing is written to disk.
	EventSaved Event = "saved"
	// EventCleared fires after the canvas is cleared.
	EventCleared Event = "cleared"
)

// Manifest is the plugin.json file in a plugin directory.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []Event         `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin subscribes to e.
func (m Manifest) Handles(e Event) bool {
	for _, ev := range m.Events {
		if ev == e {
			return true
		}
	}
	return false
}

// Drawing describes the saved files passed to a plugin.
type Drawing struct {
	ID           string    `json:"id"`
	Stamp        string    `json:"stamp"`
	CanvasPath   string    `json:"canvasPath"`
	CombinedPath string    `json:"combinedPath,omitempty"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event   Event           `json:"event"`
	Drawing *Drawing        `json:"drawing,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
