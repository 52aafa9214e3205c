package api

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// sseWriter writes stream frames as server-sent events, flushing after each one.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

// Send writes one frame. The response headers are sent with the first frame.
func (s *sseWriter) Send(frame domain.StreamFrame) error {
	if !s.started {
		s.start()
	}
	payload, err := domain.EncodeSSE(frame)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
