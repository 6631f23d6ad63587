package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-replay/internal/eventlog"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/ukydev/fleet-replay/internal/simulation"
	"github.com/zoobzio/clockz"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func mustIngest(t *testing.T, tripID string, events ...models.Event) *models.Trip {
	t.Helper()
	for i := range events {
		events[i].TripID = tripID
	}
	trip, err := eventlog.Ingest(tripID, "VH-"+tripID, events, "Trip "+tripID)
	require.NoError(t, err)
	return trip
}

func newSession(t *testing.T) *simulation.Session {
	t.Helper()
	start := models.Event{EventType: models.EventTripStarted, Timestamp: t0, PlannedDistanceKm: models.Float(100)}
	done := models.Event{EventType: models.EventTripCompleted, Timestamp: t0.Add(20 * time.Minute), DistanceTravelledKm: models.Float(100)}
	other := models.Event{EventType: models.EventLocationUpdate, Timestamp: t0.Add(5 * time.Minute),
		PlannedDistanceKm: models.Float(50), DistanceTravelledKm: models.Float(10)}

	s := simulation.NewSession(
		[]*models.Trip{mustIngest(t, "A", start, done), mustIngest(t, "B", other)},
		simulation.Options{Clock: clockz.NewFakeClock()},
	)
	t.Cleanup(s.Close)
	return s
}

func newControlRouter(t *testing.T) (http.Handler, *simulation.Session) {
	s := newSession(t)
	return NewRouter(RouterOptions{Control: NewControlHandler(s)}), s
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestControlHandler_PlayPauseReset(t *testing.T) {
	router, s := newControlRouter(t)

	w := do(router, http.MethodPost, "/api/simulation/play", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var state simulation.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(t, state.IsPlaying)

	w = do(router, http.MethodPost, "/api/simulation/pause", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.False(t, state.IsPlaying)

	_, err := s.SkipTo(1)
	require.NoError(t, err)
	w = do(router, http.MethodPost, "/api/simulation/reset", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 0, state.VisibleEvents)
	assert.Equal(t, simulation.Stopped, state.State)
}

func TestControlHandler_ChangeSpeed(t *testing.T) {
	router, s := newControlRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"speed": 50}`, http.StatusOK},
		{"fractional", `{"speed": 2.5}`, http.StatusOK},
		{"zero", `{"speed": 0}`, http.StatusBadRequest},
		{"negative", `{"speed": -1}`, http.StatusBadRequest},
		{"missing", `{}`, http.StatusBadRequest},
		{"invalid json", `{bad json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPut, "/api/simulation/speed", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, 2.5, s.Snapshot().State.Speed)

	w := do(router, http.MethodPost, "/api/simulation/speed", `{"speed": 5}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestControlHandler_SkipTo(t *testing.T) {
	router, _ := newControlRouter(t)

	w := do(router, http.MethodPost, "/api/simulation/skip", `{"progress": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	var state simulation.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 1.0, state.Progress)
	assert.Equal(t, 3, state.VisibleEvents)

	w = do(router, http.MethodPost, "/api/simulation/skip", `{"progress": 0}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 0.0, state.Progress)

	w = do(router, http.MethodPost, "/api/simulation/skip", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestControlHandler_Metrics(t *testing.T) {
	router, s := newControlRouter(t)
	_, err := s.SkipTo(1)
	require.NoError(t, err)

	w := do(router, http.MethodGet, "/api/fleet", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fleet models.FleetMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fleet))
	assert.Equal(t, 2, fleet.TotalTrips)
	assert.Equal(t, 1, fleet.CompletedTrips)
	assert.Equal(t, 1, fleet.ActiveTrips)

	w = do(router, http.MethodGet, "/api/trips", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trips TripsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))
	assert.Equal(t, 2, trips.Count)

	w = do(router, http.MethodGet, "/api/trips?status=completed", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))
	require.Equal(t, 1, trips.Count)
	assert.Equal(t, "A", trips.Trips[0].TripID)

	w = do(router, http.MethodGet, "/api/trips?status=cancelled", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))
	assert.Equal(t, 0, trips.Count)
	assert.NotNil(t, trips.Trips)

	w = do(router, http.MethodGet, "/api/trips/B", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trip models.TripMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, 20.0, trip.Progress)
	assert.Equal(t, models.TripActive, trip.Status)

	w = do(router, http.MethodGet, "/api/trips/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/api/simulation", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap simulation.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Trips, 2)
	assert.Equal(t, 2, snap.Fleet.TotalTrips)
}

func TestControlHandler_GetTripDirect(t *testing.T) {
	h := NewControlHandler(newSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/trips/A", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tripId", "A")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	h.GetTrip(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHealth(t *testing.T) {
	router, _ := newControlRouter(t)
	w := do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
