package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// streamAlertLimit caps the active alerts carried in one stream event.
const streamAlertLimit = 5

type streamEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Reading   *readingView   `json:"reading,omitempty"`
	NewAlerts []domain.Alert `json:"new_alerts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// handleStream pushes the latest reading and active alerts as server-sent
// events until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("stream write deadline not cleared", "error", err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if err := s.sendEvent(w, rc, streamEvent{Timestamp: domain.Now()}); err != nil {
		return
	}

	ticker := time.NewTicker(s.opts.StreamInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stream client disconnected")
			return
		case <-ticker.C:
			if err := s.sendEvent(w, rc, s.snapshot(r)); err != nil {
				return
			}
		}
	}
}

func (s *Server) snapshot(r *http.Request) streamEvent {
	ev := streamEvent{Timestamp: domain.Now()}

	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		s.logger.Error("stream read failed", "error", err)
		return streamEvent{Timestamp: ev.Timestamp, Error: "Stream error occurred"}
	}
	if latest != nil {
		v := s.annotate(*latest)
		ev.Reading = &v
	}

	alerts, err := s.store.ListAlerts(r.Context(), domain.StatusActive, streamAlertLimit)
	if err != nil {
		s.logger.Error("stream read failed", "error", err)
		return streamEvent{Timestamp: ev.Timestamp, Error: "Stream error occurred"}
	}
	ev.NewAlerts = alerts
	return ev
}

func (s *Server) sendEvent(w http.ResponseWriter, rc *http.ResponseController, ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
