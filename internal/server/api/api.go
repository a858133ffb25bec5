// Package api provides the JSON handlers for the airdraw web viewer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/airdraw/internal/app"
	"github.com/ayusman/airdraw/internal/store"
)

// Controller is the part of the pipeline the HTTP API drives. *app.App
// implements it.
type Controller interface {
	Clear(ctx context.Context) error
	Save(ctx context.Context) (*store.Drawing, error)
	CanvasPNG(ctx context.Context) ([]byte, error)
	Enabled() bool
	SetEnabled(enabled bool)
	Running() bool
	Frames() uint64
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusOf maps pipeline errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, app.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrNoCanvas):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
