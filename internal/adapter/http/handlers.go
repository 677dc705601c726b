package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
	"github.com/couchcryptid/coastal-alert-service/internal/store"
)

const (
	maxBodyBytes  = 1 << 20
	maxListLimit  = 1000
	maxSimulated  = 1000
	defaultLimitR = 100
	defaultLimitA = 50
)

// readingView is a stored reading annotated with its risk classification.
type readingView struct {
	domain.Reading
	Risk domain.RiskLevel `json:"risk"`
}

func (s *Server) annotate(r domain.Reading) readingView {
	return readingView{Reading: r, Risk: domain.Classify(r, s.pipeline.Thresholds())}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err.Error())
		return
	}

	readings, err := s.pipeline.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), readings)
	if err != nil {
		s.logger.Error("ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process environmental data", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"ingested": len(res.Readings),
		"alerts":   res.Alerts,
		"message":  fmt.Sprintf("Successfully processed %d environmental readings", len(res.Readings)),
	})
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultLimitR)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	readings, err := s.store.ListReadings(r.Context(), limit)
	if err != nil {
		s.logger.Error("list readings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch readings", err.Error())
		return
	}

	views := make([]readingView, 0, len(readings))
	for _, rd := range readings {
		views = append(views, s.annotate(rd))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"readings": views,
		"count":    len(views),
		"message":  fmt.Sprintf("Retrieved %d recent readings", len(views)),
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	status := domain.StatusActive
	if q := r.URL.Query().Get("status"); q != "" {
		var ok bool
		if status, ok = domain.ParseAlertStatus(q); !ok {
			writeError(w, http.StatusBadRequest, "status must be active or cleared", "")
			return
		}
	}
	limit, err := parseLimit(r, defaultLimitA)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	alerts, err := s.store.ListAlerts(r.Context(), status, limit)
	if err != nil {
		s.logger.Error("list alerts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch alerts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":  alerts,
		"count":   len(alerts),
		"status":  status,
		"message": fmt.Sprintf("Retrieved %d %s alerts", len(alerts), status),
	})
}

type alertActionRequest struct {
	Action   string `json:"action"`
	Scenario string `json:"scenario"`
}

func (s *Server) handleAlertAction(w http.ResponseWriter, r *http.Request) {
	var req alertActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	switch {
	case req.Action == "clear":
		n, err := s.pipeline.ClearActive(r.Context())
		if err != nil {
			s.logger.Error("clear active alerts failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to process alert request", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"cleared": n,
			"message": fmt.Sprintf("Cleared %d active alerts", n),
		})

	case req.Scenario != "":
		alert, err := s.pipeline.TriggerScenario(r.Context(), domain.Scenario(req.Scenario))
		if errors.Is(err, domain.ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Invalid scenario. Use flood_watch or storm_surge", err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to process alert request", err.Error())
			return
		}
		s.logger.Info("scenario triggered", "scenario", req.Scenario, "alert_id", alert.ID)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"alert":    alert,
			"scenario": req.Scenario,
			"message":  fmt.Sprintf("%s scenario triggered successfully", req.Scenario),
		})

	default:
		writeError(w, http.StatusBadRequest,
			"Invalid request. Provide either scenario (flood_watch/storm_surge) or action (clear)", "")
	}
}

func (s *Server) handleClearAlert(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Alert ID required", "")
		return
	}

	err := s.pipeline.ClearAlert(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Alert not found", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("clear alert failed", "alert_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear alert", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"alert_id": id,
		"message":  "Alert cleared successfully",
	})
}

type simulateRequest struct {
	Count    *int   `json:"count"`
	Scenario string `json:"scenario"`
	Interval *int   `json:"interval"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	count, interval := 10, 60
	if req.Count != nil {
		count = *req.Count
	}
	if req.Interval != nil {
		interval = *req.Interval
	}
	if count < 1 || count > maxSimulated {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", maxSimulated), "")
		return
	}
	if interval < 0 {
		writeError(w, http.StatusBadRequest, "interval must not be negative", "")
		return
	}

	scenario, err := domain.ParseSimScenario(req.Scenario)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scenario. Use normal, flood_watch or storm_surge", err.Error())
		return
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	readings := domain.GenerateReadings(scenario, count, time.Duration(interval)*time.Second, s.opts.Origin, rng)

	s.logger.Info("simulated readings generated", "scenario", scenario, "count", len(readings))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"readings": readings,
		"scenario": scenario,
		"count":    len(readings),
		"message":  fmt.Sprintf("Generated %d sample readings for %s scenario", len(readings), scenario),
	})
}

func (s *Server) handleSimulatorInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Data Simulator API - Use POST to generate sample data",
		"parameters": map[string]string{
			"count":    fmt.Sprintf("Number of readings to generate, 1-%d (default: 10)", maxSimulated),
			"scenario": "Data scenario: normal, flood_watch, storm_surge (default: normal)",
			"interval": "Seconds between readings (default: 60)",
		},
		"examples": map[string]string{
			"normal":      `POST /api/simulator with {"count": 20, "scenario": "normal"}`,
			"flood_watch": `POST /api/simulator with {"scenario": "flood_watch", "count": 15}`,
			"storm_surge": `POST /api/simulator with {"scenario": "storm_surge", "count": 10}`,
		},
	})
}

func (s *Server) handleRiskLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"levels":     domain.RiskLevels(),
		"thresholds": s.pipeline.Thresholds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications":    s.notifier.Status(),
		"region":           s.opts.Region,
		"timezone":         s.opts.Timezone.String(),
		"local_time":       domain.Now().In(s.opts.Timezone).Format(time.RFC3339),
		"default_location": s.opts.Origin,
		"thresholds":       s.pipeline.Thresholds(),
	})
}

func parseLimit(r *http.Request, def int) (int, error) {
	q := r.URL.Query().Get("limit")
	if q == "" {
		return def, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", maxListLimit)
	}
	return n, nil
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
