package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/airdraw/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func drawingRouter(s *store.Store) http.Handler {
	r := chi.NewRouter()
	NewDrawingHandler(s).Register(r)
	return r
}

func seedDrawing(t *testing.T, s *store.Store, stamp string, created time.Time) *store.Drawing {
	t.Helper()
	dir := t.TempDir()
	d := &store.Drawing{
		Stamp:        stamp,
		CanvasPath:   filepath.Join(dir, "drawing_"+stamp+".png"),
		CombinedPath: filepath.Join(dir, "combined_"+stamp+".png"),
		Width:        640,
		Height:       480,
		PaletteIndex: 1,
		Color:        "Red",
		CreatedAt:    created,
	}
	for _, p := range []string{d.CanvasPath, d.CombinedPath} {
		if err := os.WriteFile(p, []byte("\x89PNG fake"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Drawings().Create(d); err != nil {
		t.Fatalf("failed to create drawing: %v", err)
	}
	return d
}

func TestDrawingHandler_List(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	seedDrawing(t, s, "first", base)
	seedDrawing(t, s, "second", base.Add(time.Minute))
	seedDrawing(t, s, "third", base.Add(2*time.Minute))
	h := drawingRouter(s)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantStamps []string
	}{
		{"all newest first", "/api/drawings", http.StatusOK, []string{"third", "second", "first"}},
		{"limited", "/api/drawings?limit=1", http.StatusOK, []string{"third"}},
		{"bad limit", "/api/drawings?limit=abc", http.StatusBadRequest, nil},
		{"negative limit", "/api/drawings?limit=-2", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var response listDrawingsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			var stamps []string
			for _, d := range response.Drawings {
				stamps = append(stamps, d.Stamp)
			}
			if diff := cmp.Diff(tt.wantStamps, stamps); diff != "" {
				t.Errorf("stamps mismatch (-want +got):\n%s", diff)
			}
			if response.Total != 3 {
				t.Errorf("total = %d, want 3", response.Total)
			}
		})
	}
}

func TestDrawingHandler_List_Empty(t *testing.T) {
	h := drawingRouter(newTestStore(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response listDrawingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Drawings == nil || len(response.Drawings) != 0 {
		t.Errorf("expected an empty list, got %v", response.Drawings)
	}
}

func TestDrawingHandler_Get(t *testing.T) {
	s := newTestStore(t)
	d := seedDrawing(t, s, "20260201_100000_000", time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	h := drawingRouter(s)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/"+d.ID, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var got drawingResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		want := toDrawingResponse(d)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("drawing mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestDrawingHandler_Image(t *testing.T) {
	s := newTestStore(t)
	d := seedDrawing(t, s, "img", time.Now())
	h := drawingRouter(s)

	for _, url := range []string{"/api/drawings/" + d.ID + "/image", "/api/drawings/" + d.ID + "/image?combined=1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", url, http.StatusOK, rec.Code)
		}
		if rec.Body.String() != "\x89PNG fake" {
			t.Errorf("%s: unexpected body %q", url, rec.Body.String())
		}
	}

	os.Remove(d.CanvasPath)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/"+d.ID+"/image", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDrawingHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	d := seedDrawing(t, s, "del", time.Now())
	h := drawingRouter(s)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/drawings/"+d.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := s.Drawings().GetByID(d.ID); err == nil {
		t.Error("drawing still in the store")
	}
	for _, p := range []string{d.CanvasPath, d.CombinedPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", p)
		}
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/drawings/"+d.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDrawingHandler_Runs(t *testing.T) {
	s := newTestStore(t)
	d := seedDrawing(t, s, "runs", time.Now())
	if err := s.PluginRuns().Record(&store.PluginRun{DrawingID: d.ID, PluginName: "uploader", Error: "offline"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	h := drawingRouter(s)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/"+d.ID+"/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var runs []pluginRunResponse
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(runs) != 1 || runs[0].Plugin != "uploader" || runs[0].Success || runs[0].Error != "offline" {
		t.Errorf("unexpected runs %+v", runs)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/missing/runs", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
