package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-replay/internal/models"
)

// MongoSource loads one trip's events from an EventCollection.
// It satisfies eventlog.Source.
type MongoSource struct {
	Events   EventCollection
	TripID   string
	TripName string
}

// Name returns the trip display name, falling back to the trip id.
func (s MongoSource) Name() string {
	if s.TripName == "" {
		return s.TripID
	}
	return s.TripName
}

// Load fetches the trip's events.
func (s MongoSource) Load(ctx context.Context) ([]models.Event, error) {
	events, err := s.Events.FindTripEvents(ctx, s.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip %s from mongo: %w", s.TripID, err)
	}
	return events, nil
}
