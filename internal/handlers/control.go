package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/ukydev/fleet-replay/internal/simulation"
)

// Replay is the playback surface the control handler drives.
type Replay interface {
	Play() simulation.Snapshot
	Pause() simulation.Snapshot
	Reset() simulation.Snapshot
	ChangeSpeed(speed float64) (simulation.Snapshot, error)
	SkipTo(fraction float64) (simulation.Snapshot, error)
	Snapshot() simulation.Snapshot
}

// SpeedRequest is the body of PUT /api/simulation/speed
type SpeedRequest struct {
	Speed *float64 `json:"speed"`
}

// SkipRequest is the body of POST /api/simulation/skip
type SkipRequest struct {
	Progress *float64 `json:"progress"`
}

// TripsResponse is the body of GET /api/trips
type TripsResponse struct {
	Trips []models.TripMetrics `json:"trips"`
	Count int                  `json:"count"`
}

// ControlHandler exposes playback control and derived metrics over HTTP
type ControlHandler struct {
	replay Replay
}

// NewControlHandler creates a new control handler
func NewControlHandler(replay Replay) *ControlHandler {
	return &ControlHandler{replay: replay}
}

// GetSimulation handles GET /api/simulation
func (h *ControlHandler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.replay.Snapshot())
}

// Play handles POST /api/simulation/play
func (h *ControlHandler) Play(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.replay.Play().State)
}

// Pause handles POST /api/simulation/pause
func (h *ControlHandler) Pause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.replay.Pause().State)
}

// Reset handles POST /api/simulation/reset
func (h *ControlHandler) Reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.replay.Reset().State)
}

// ChangeSpeed handles PUT /api/simulation/speed
func (h *ControlHandler) ChangeSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Speed == nil {
		http.Error(w, "speed is required", http.StatusBadRequest)
		return
	}

	snap, err := h.replay.ChangeSpeed(*req.Speed)
	if errors.Is(err, simulation.ErrInvalidSpeed) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to change speed")
		http.Error(w, "Failed to change speed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap.State)
}

// SkipTo handles POST /api/simulation/skip
func (h *ControlHandler) SkipTo(w http.ResponseWriter, r *http.Request) {
	var req SkipRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Progress == nil {
		http.Error(w, "progress is required", http.StatusBadRequest)
		return
	}

	snap, err := h.replay.SkipTo(*req.Progress)
	if errors.Is(err, simulation.ErrInvalidFraction) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to skip")
		http.Error(w, "Failed to skip", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap.State)
}

// GetFleet handles GET /api/fleet
func (h *ControlHandler) GetFleet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.replay.Snapshot().Fleet)
}

// GetTrips handles GET /api/trips, optionally filtered by ?status=
func (h *ControlHandler) GetTrips(w http.ResponseWriter, r *http.Request) {
	trips := h.replay.Snapshot().Trips
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]models.TripMetrics, 0, len(trips))
		for _, m := range trips {
			if string(m.Status) == status {
				filtered = append(filtered, m)
			}
		}
		trips = filtered
	}
	if trips == nil {
		trips = []models.TripMetrics{}
	}
	writeJSON(w, http.StatusOK, TripsResponse{Trips: trips, Count: len(trips)})
}

// GetTrip handles GET /api/trips/{tripId}
func (h *ControlHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	m, ok := h.replay.Snapshot().Trip(tripID)
	if !ok {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// maxBodyBytes bounds control request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
