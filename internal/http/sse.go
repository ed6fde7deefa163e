package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	applog "tracker/internal/log"
)

// handleEvents streams view updates as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Watch delivers the current view immediately, so a fresh subscriber
	// renders without waiting for the next snapshot.
	views := s.ctrl.Watch(r.Context())

	s.logger.InfoContext(r.Context(), "event stream opened",
		applog.FieldPath, r.URL.Path)

	for view := range views {
		if err := writeEvent(w, viewPayloadFrom(view)); err != nil {
			s.logger.InfoContext(r.Context(), "event stream closed",
				applog.FieldError, err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, payload viewPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal view event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: view\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("write view event: %w", err)
	}
	return nil
}
