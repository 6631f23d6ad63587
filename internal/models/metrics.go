package models

import "time"

// AlertKind classifies an alert's severity.
type AlertKind string

const (
	AlertInfo    AlertKind = "info"
	AlertWarning AlertKind = "warning"
	AlertError   AlertKind = "error"
)

// Alert is a short human-readable notice derived from one event.
type Alert struct {
	Kind      AlertKind `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"eventType"`
}

// IsCritical reports whether the alert counts towards the fleet's critical total.
func (a Alert) IsCritical() bool {
	return a.Kind == AlertError
}

// TripMetrics is the point-in-time projection of a trip. It is recomputed on
// every clock change and never stored.
type TripMetrics struct {
	TripID            string     `json:"tripId"`
	VehicleID         string     `json:"vehicleId"`
	TripName          string     `json:"tripName"`
	Status            TripStatus `json:"status"`
	Progress          float64    `json:"progress"`
	CurrentSpeed      float64    `json:"currentSpeed"`
	DistanceTravelled float64    `json:"distanceTravelled"`
	TotalDistance     float64    `json:"totalDistance"`
	FuelLevel         float64    `json:"fuelLevel"`
	BatteryLevel      float64    `json:"batteryLevel"`
	LastLocation      Location   `json:"lastLocation"`
	Alerts            []Alert    `json:"alerts"`
	StartTime         *time.Time `json:"startTime,omitempty"`
	EndTime           *time.Time `json:"endTime,omitempty"`
	Duration          *float64   `json:"duration,omitempty"`
}

// HasLocation reports whether LastLocation is a real fix rather than the unknown marker.
func (m TripMetrics) HasLocation() bool {
	return !m.LastLocation.IsUnknown()
}

// FleetMetrics aggregates the metrics of every trip at one instant.
type FleetMetrics struct {
	TotalTrips     int     `json:"totalTrips"`
	ActiveTrips    int     `json:"activeTrips"`
	CompletedTrips int     `json:"completedTrips"`
	CancelledTrips int     `json:"cancelledTrips"`
	TotalDistance  float64 `json:"totalDistance"`
	AverageSpeed   float64 `json:"averageSpeed"`
	TotalAlerts    int     `json:"totalAlerts"`
	CriticalAlerts int     `json:"criticalAlerts"`
}
