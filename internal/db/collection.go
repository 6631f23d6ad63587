package db

import (
	"context"

	"github.com/ukydev/fleet-replay/internal/models"
)

// EventCollection defines the interface for trip event storage.
type EventCollection interface {
	InsertEvents(ctx context.Context, events []models.Event) error
	FindTripEvents(ctx context.Context, tripID string) ([]models.Event, error)
	TripIDs(ctx context.Context) ([]string, error)
	DeleteTrip(ctx context.Context, tripID string) error
}

// OperatorCollection defines the interface for operator account lookups.
type OperatorCollection interface {
	InsertOperator(ctx context.Context, operator models.Operator) error
	FindOperatorByUsername(ctx context.Context, username string) (*models.Operator, error)
}
