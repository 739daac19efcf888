package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

// sseWriter frames stream events as server-sent `data:` lines. Headers are
// written lazily so a pipeline that fails validation before its first event
// can still answer with a plain JSON error status.
type sseWriter struct {
	w           http.ResponseWriter
	flusher     http.Flusher
	headersSent bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming is not supported by response writer")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) WriteEvent(event domain.StreamEvent) error {
	if !s.headersSent {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.headersSent = true
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) Started() bool {
	return s.headersSent
}
