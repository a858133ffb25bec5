package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/airdraw/internal/session"
)

// StreamHandler serves the composited pipeline output as MJPEG. Each client
// gets the newest frame; frames published while it is still writing are
// skipped.
type StreamHandler struct {
	slot *session.Slot
}

// NewStreamHandler creates a new StreamHandler reading from slot.
func NewStreamHandler(slot *session.Slot) *StreamHandler {
	return &StreamHandler{slot: slot}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	var seq uint64
	for {
		frame, err := h.slot.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = frame.Seq

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame.JPEG))
		if _, err := w.Write(frame.JPEG); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if flusher != nil {
			flusher.Flush()
		}
	}
}
