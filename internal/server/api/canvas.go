package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// CanvasHandler exposes the live canvas and the pipeline switches.
type CanvasHandler struct {
	ctrl Controller
}

// NewCanvasHandler creates a CanvasHandler for ctrl.
func NewCanvasHandler(ctrl Controller) *CanvasHandler {
	return &CanvasHandler{ctrl: ctrl}
}

// Register mounts the canvas routes on r.
func (h *CanvasHandler) Register(r chi.Router) {
	r.Get("/api/canvas.png", h.png)
	r.Post("/api/canvas/clear", h.clear)
	r.Post("/api/canvas/save", h.save)
	r.Get("/api/tracking", h.tracking)
	r.Put("/api/tracking", h.setTracking)
}

// png handles GET /api/canvas.png.
func (h *CanvasHandler) png(w http.ResponseWriter, r *http.Request) {
	data, err := h.ctrl.CanvasPNG(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// clear handles POST /api/canvas/clear.
func (h *CanvasHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Clear(r.Context()); err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// save handles POST /api/canvas/save and returns the new drawing.
func (h *CanvasHandler) save(w http.ResponseWriter, r *http.Request) {
	d, err := h.ctrl.Save(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toDrawingResponse(d))
}

type trackingState struct {
	Enabled bool `json:"enabled"`
}

// tracking handles GET /api/tracking.
func (h *CanvasHandler) tracking(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, trackingState{Enabled: h.ctrl.Enabled()})
}

// setTracking handles PUT /api/tracking.
func (h *CanvasHandler) setTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.ctrl.SetEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, trackingState{Enabled: h.ctrl.Enabled()})
}
