package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/models"
)

// Source yields the raw event log of one trip.
type Source interface {
	// Name is the display name given to the trip.
	Name() string
	Load(ctx context.Context) ([]models.Event, error)
}

// FileSource reads a trip from a JSON array of events on disk.
type FileSource struct {
	Path     string
	TripName string
}

// Name returns the trip display name.
func (s FileSource) Name() string {
	return s.TripName
}

// Load reads and decodes the file.
func (s FileSource) Load(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	return events, nil
}

// Load fetches every source concurrently and ingests the results in source
// order. Sources that fail or yield no events are logged and skipped.
func Load(ctx context.Context, sources []Source) []*models.Trip {
	type result struct {
		events []models.Event
		err    error
	}

	results := make([]result, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			events, err := src.Load(ctx)
			results[i] = result{events: events, err: err}
		}(i, src)
	}
	wg.Wait()

	trips := make([]*models.Trip, 0, len(sources))
	for i, src := range sources {
		res := results[i]
		if res.err != nil {
			log.WithError(res.err).WithField("trip_name", src.Name()).Error("Failed to load trip, skipping")
			continue
		}

		var tripID, vehicleID string
		if len(res.events) > 0 {
			tripID = res.events[0].TripID
			vehicleID = res.events[0].VehicleID
		}

		trip, err := Ingest(tripID, vehicleID, res.events, src.Name())
		if err != nil {
			if errors.Is(err, ErrEmptyLog) {
				log.WithField("trip_name", src.Name()).Warn("Trip log is empty, skipping")
			} else {
				log.WithError(err).WithField("trip_name", src.Name()).Error("Failed to ingest trip, skipping")
			}
			continue
		}

		log.WithFields(log.Fields{
			"trip_id":    trip.TripID,
			"vehicle_id": trip.VehicleID,
			"trip_name":  trip.Name,
			"events":     len(trip.Events),
			"status":     trip.Status,
		}).Info("Loaded trip")
		trips = append(trips, trip)
	}
	return trips
}
