package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/coastal-alert-service/internal/adapter/http"
	"github.com/couchcryptid/coastal-alert-service/internal/domain"
	"github.com/couchcryptid/coastal-alert-service/internal/notify"
	"github.com/couchcryptid/coastal-alert-service/internal/observability"
	"github.com/couchcryptid/coastal-alert-service/internal/pipeline"
	"github.com/couchcryptid/coastal-alert-service/internal/store"
)

var mumbai = domain.Geo{Lat: 19.076, Lng: 72.8777}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Alert) error { return nil }

type countingDispatcher struct{ calls int }

func (d *countingDispatcher) Dispatch(context.Context, domain.Alert) notify.DeliveryReport {
	d.calls++
	return notify.DeliveryReport{SMS: notify.OutcomeSuccess, Push: notify.OutcomeSuccess}
}

type staticStatus struct{}

func (staticStatus) Status() notify.ServiceStatus {
	return notify.ServiceStatus{SMS: "MOCK_MODE", Push: "MOCK_MODE", Mode: "DEVELOPMENT"}
}

type unreachableStore struct{ *store.Memory }

func (unreachableStore) Ping(context.Context) error { return errors.New("connection refused") }

type fixture struct {
	srv        *httpadapter.Server
	store      store.Store
	dispatcher *countingDispatcher
}

func newFixture(t *testing.T, s store.Store, interval time.Duration) *fixture {
	t.Helper()
	if s == nil {
		s = store.NewMemory()
	}
	disp := &countingDispatcher{}
	p := pipeline.New(s, nopPublisher{}, disp, pipeline.Options{
		Thresholds: domain.DefaultThresholds(),
		Origin:     mumbai,
		BatchSize:  10,
	}, slog.Default(), observability.NewMetricsForTesting())

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           ":0",
		Region:         "Mumbai",
		Timezone:       kolkata,
		Origin:         mumbai,
		StreamInterval: interval,
	}, p, s, staticStatus{}, slog.Default())
	return &fixture{srv: srv, store: s, dispatcher: disp}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const surgeReading = `{"timestamp":"2025-07-14T06:00:00Z","lat":19.08,"lng":72.88,"tide_m":3.5,"wind_kmh":75,"temp_c":27,"rain_mm":10}`

func TestHealthzReturns200(t *testing.T) {
	f := newFixture(t, nil, 0)
	rec, _ := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsStore(t *testing.T) {
	f := newFixture(t, nil, 0)
	rec, _ := f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f = newFixture(t, unreachableStore{store.NewMemory()}, 0)
	rec, _ = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil, 0)
	rec, _ := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestIngest_StoresReadingAndRaisesAlert(t *testing.T) {
	f := newFixture(t, nil, 0)

	rec, body := f.do(t, http.MethodPost, "/api/ingest", surgeReading)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["ingested"])
	alerts, ok := body["alerts"].([]any)
	require.True(t, ok)
	require.Len(t, alerts, 1)
	assert.Equal(t, "storm_surge", alerts[0].(map[string]any)["type"])
	assert.Equal(t, 1, f.dispatcher.calls)

	rec, body = f.do(t, http.MethodGet, "/api/ingest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	readings := body["readings"].([]any)
	risk := readings[0].(map[string]any)["risk"].(map[string]any)
	assert.Equal(t, "warning", risk["level"])
}

func TestIngest_NormalReadingRaisesNothing(t *testing.T) {
	f := newFixture(t, nil, 0)
	rec, body := f.do(t, http.MethodPost, "/api/ingest",
		`[{"timestamp":"2025-07-14T06:00:00Z","lat":19,"lng":72.8,"tide_m":1.2,"wind_kmh":20,"temp_c":28,"rain_mm":2}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["alerts"])
	assert.Equal(t, 0, f.dispatcher.calls)
}

func TestIngest_RejectsInvalidBody(t *testing.T) {
	f := newFixture(t, nil, 0)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"tide_m":`, "invalid JSON"},
		{"empty array", `[]`, "no readings"},
		{"missing field", `{"timestamp":"2025-07-14T06:00:00Z","lat":19,"lng":72,"tide_m":1,"wind_kmh":1,"temp_c":1}`, "rain_mm is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/api/ingest", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["error"], tt.want)
		})
	}

	readings, err := f.store.ListReadings(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestListReadings_RejectsBadLimit(t *testing.T) {
	f := newFixture(t, nil, 0)
	rec, _ := f.do(t, http.MethodGet, "/api/ingest?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/api/ingest?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlerts_ScenarioListAndClear(t *testing.T) {
	f := newFixture(t, nil, 0)

	rec, body := f.do(t, http.MethodPost, "/api/alerts", `{"scenario":"flood_watch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "flood_watch", body["scenario"])
	alert := body["alert"].(map[string]any)
	assert.Equal(t, "watch", alert["level"])
	assert.NotEmpty(t, alert["id"])

	rec, body = f.do(t, http.MethodPost, "/api/alerts", `{"scenario":"storm_surge"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "active", body["status"])

	rec, body = f.do(t, http.MethodPost, "/api/alerts", `{"action":"clear"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["cleared"])

	_, body = f.do(t, http.MethodGet, "/api/alerts", "")
	assert.EqualValues(t, 0, body["count"])

	_, body = f.do(t, http.MethodGet, "/api/alerts?status=cleared", "")
	assert.EqualValues(t, 2, body["count"])
}

func TestAlerts_RejectsBadRequests(t *testing.T) {
	f := newFixture(t, nil, 0)

	rec, body := f.do(t, http.MethodPost, "/api/alerts", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request. Provide either scenario (flood_watch/storm_surge) or action (clear)", body["error"])

	rec, _ = f.do(t, http.MethodPost, "/api/alerts", `{"scenario":"tsunami"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/alerts", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/alerts?status=pending", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, f.dispatcher.calls)
}

func TestDeleteAlert(t *testing.T) {
	f := newFixture(t, nil, 0)

	rec, body := f.do(t, http.MethodDelete, "/api/alerts", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Alert ID required", body["error"])

	rec, _ = f.do(t, http.MethodDelete, "/api/alerts?id=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = f.do(t, http.MethodPost, "/api/alerts", `{"scenario":"storm_surge"}`)
	id := body["alert"].(map[string]any)["id"].(string)

	rec, body = f.do(t, http.MethodDelete, "/api/alerts?id="+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["alert_id"])

	// Clearing twice succeeds.
	rec, _ = f.do(t, http.MethodDelete, "/api/alerts?id="+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSimulator(t *testing.T) {
	f := newFixture(t, nil, 0)

	rec, body := f.do(t, http.MethodPost, "/api/simulator", `{"scenario":"storm_surge","count":5,"interval":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, body["count"])
	assert.Equal(t, "storm_surge", body["scenario"])
	assert.Len(t, body["readings"], 5)

	rec, body = f.do(t, http.MethodPost, "/api/simulator", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10, body["count"])
	assert.Equal(t, "normal", body["scenario"])

	rec, _ = f.do(t, http.MethodPost, "/api/simulator", `{"count":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/simulator", `{"scenario":"drought"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/api/simulator", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "parameters")
	assert.Contains(t, body, "examples")

	// Simulated readings are not stored.
	readings, err := f.store.ListReadings(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestRiskLevelsAndStatus(t *testing.T) {
	f := newFixture(t, nil, 0)

	rec, body := f.do(t, http.MethodGet, "/api/risk-levels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["levels"], 4)
	assert.InDelta(t, 3.2, body["thresholds"].(map[string]any)["tide_warning"], 0.0001)

	rec, body = f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mumbai", body["region"])
	assert.Equal(t, "Asia/Kolkata", body["timezone"])
	assert.Contains(t, body["local_time"], "+05:30")
	assert.Equal(t, "DEVELOPMENT", body["notifications"].(map[string]any)["mode"])
}

func TestStream_SendsInitialAndPeriodicEvents(t *testing.T) {
	f := newFixture(t, nil, 20*time.Millisecond)
	_, _ = f.do(t, http.MethodPost, "/api/ingest", surgeReading)

	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var events []map[string]any
	scanner := bufio.NewScanner(resp.Body)
	for len(events) < 2 && scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)

	assert.Contains(t, events[0], "timestamp")
	assert.NotContains(t, events[0], "reading")

	reading := events[1]["reading"].(map[string]any)
	assert.InDelta(t, 3.5, reading["tide_m"], 0.0001)
	assert.Len(t, events[1]["new_alerts"], 1)
}
