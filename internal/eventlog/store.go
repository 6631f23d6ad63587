// Package eventlog holds per-trip event logs and merges them into the
// global replay timeline.
package eventlog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ukydev/fleet-replay/internal/models"
)

// ErrEmptyLog is matched by errors.Is for every *EmptyLogError.
var ErrEmptyLog = errors.New("empty event log")

// EmptyLogError reports a trip source that produced no events.
// Callers should skip the trip, not abort the load.
type EmptyLogError struct {
	TripID string
}

func (e *EmptyLogError) Error() string {
	if e.TripID == "" {
		return ErrEmptyLog.Error()
	}
	return fmt.Sprintf("%s for trip %q", ErrEmptyLog, e.TripID)
}

// Is lets errors.Is(err, ErrEmptyLog) match.
func (e *EmptyLogError) Is(target error) bool {
	return target == ErrEmptyLog
}

// Ingest sorts a copy of events by timestamp (stable) and returns the trip
// with its status derived from the last event.
func Ingest(tripID, vehicleID string, events []models.Event, name string) (*models.Trip, error) {
	if len(events) == 0 {
		return nil, &EmptyLogError{TripID: tripID}
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sortByTimestamp(sorted)

	return &models.Trip{
		TripID:    tripID,
		VehicleID: vehicleID,
		Name:      name,
		Status:    models.StatusOf(sorted[len(sorted)-1].EventType),
		Events:    sorted,
	}, nil
}

// MergeAll concatenates every trip's events into one timeline sorted by
// timestamp. Ties keep trip order, then per-trip order.
func MergeAll(trips []*models.Trip) []models.Event {
	total := 0
	for _, t := range trips {
		total += len(t.Events)
	}

	merged := make([]models.Event, 0, total)
	for _, t := range trips {
		merged = append(merged, t.Events...)
	}
	sortByTimestamp(merged)
	return merged
}

func sortByTimestamp(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
