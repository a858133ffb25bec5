package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/airdraw/internal/store"
)

// defaultListLimit caps GET /api/drawings when no limit is given.
const defaultListLimit = 50

// DrawingHandler serves saved drawings from the store.
type DrawingHandler struct {
	store *store.Store
}

// NewDrawingHandler creates a new DrawingHandler with the given store.
func NewDrawingHandler(s *store.Store) *DrawingHandler {
	return &DrawingHandler{store: s}
}

// Register mounts the drawing routes on r.
func (h *DrawingHandler) Register(r chi.Router) {
	r.Route("/api/drawings", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
		r.Get("/{id}/image", h.image)
		r.Get("/{id}/runs", h.runs)
	})
}

type drawingResponse struct {
	ID           string `json:"id"`
	Stamp        string `json:"stamp"`
	CanvasPath   string `json:"canvas_path"`
	CombinedPath string `json:"combined_path,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	PaletteIndex int    `json:"palette_index"`
	Color        string `json:"color"`
	CreatedAt    string `json:"created_at"`
}

type listDrawingsResponse struct {
	Drawings []drawingResponse `json:"drawings"`
	Total    int               `json:"total"`
}

func toDrawingResponse(d *store.Drawing) drawingResponse {
	return drawingResponse{
		ID:           d.ID,
		Stamp:        d.Stamp,
		CanvasPath:   d.CanvasPath,
		CombinedPath: d.CombinedPath,
		Width:        d.Width,
		Height:       d.Height,
		PaletteIndex: d.PaletteIndex,
		Color:        d.Color,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
}

// list handles GET /api/drawings?limit=N, newest first.
func (h *DrawingHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	drawings, err := h.store.Drawings().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list drawings")
		return
	}
	total, err := h.store.Drawings().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count drawings")
		return
	}

	response := listDrawingsResponse{
		Drawings: make([]drawingResponse, 0, len(drawings)),
		Total:    total,
	}
	for _, d := range drawings {
		response.Drawings = append(response.Drawings, toDrawingResponse(d))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/drawings/{id}.
func (h *DrawingHandler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Drawings().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Drawing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get drawing")
		return
	}
	writeJSON(w, http.StatusOK, toDrawingResponse(d))
}

// delete handles DELETE /api/drawings/{id}. The row goes first; the image
// files are removed afterwards and a missing file is not an error.
func (h *DrawingHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.store.Drawings().GetByID(id)
	if err == nil {
		err = h.store.Drawings().Delete(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Drawing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete drawing")
		return
	}

	for _, p := range []string{d.CanvasPath, d.CombinedPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			writeError(w, http.StatusInternalServerError, "Failed to remove drawing file")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// image handles GET /api/drawings/{id}/image. ?combined=1 selects the
// composited frame instead of the bare canvas.
func (h *DrawingHandler) image(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Drawings().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Drawing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get drawing")
		return
	}

	path := d.CanvasPath
	if r.URL.Query().Get("combined") == "1" {
		path = d.CombinedPath
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

type pluginRunResponse struct {
	Plugin    string `json:"plugin"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// runs handles GET /api/drawings/{id}/runs.
func (h *DrawingHandler) runs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Drawings().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Drawing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get drawing")
		return
	}

	runs, err := h.store.PluginRuns().ListByDrawing(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plugin runs")
		return
	}
	response := make([]pluginRunResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, pluginRunResponse{
			Plugin:    run.PluginName,
			Success:   run.Success,
			Error:     run.Error,
			CreatedAt: run.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
