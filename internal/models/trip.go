package models

import "time"

// TripStatus is the lifecycle state of a trip as seen at some instant.
type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// StatusOf derives the trip status implied by an event type.
func StatusOf(eventType string) TripStatus {
	switch eventType {
	case EventTripCompleted:
		return TripCompleted
	case EventTripCancelled:
		return TripCancelled
	default:
		return TripActive
	}
}

// Trip represents one vehicle journey as an ordered event log.
// Events are sorted by timestamp ascending; a Trip is not modified after ingestion.
type Trip struct {
	TripID    string     `json:"tripId"`
	VehicleID string     `json:"vehicleId"`
	Name      string     `json:"tripName"`
	Status    TripStatus `json:"status"`
	Events    []Event    `json:"events"`
}

// Start returns the timestamp of the trip's first event.
func (t *Trip) Start() (time.Time, bool) {
	if len(t.Events) == 0 {
		return time.Time{}, false
	}
	return t.Events[0].Timestamp, true
}
