package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Known event types. The set is open: unknown types are carried through untouched.
const (
	EventTripStarted        = "trip_started"
	EventLocationUpdate     = "location_update"
	EventTripCompleted      = "trip_completed"
	EventTripCancelled      = "trip_cancelled"
	EventSpeedViolation     = "speed_violation"
	EventFuelLevelLow       = "fuel_level_low"
	EventBatteryLow         = "battery_low"
	EventDeviceError        = "device_error"
	EventSignalLost         = "signal_lost"
	EventSignalRecovered    = "signal_recovered"
	EventRefuelingStarted   = "refueling_started"
	EventRefuelingCompleted = "refueling_completed"
	EventVehicleStopped     = "vehicle_stopped"
	EventVehicleMoving      = "vehicle_moving"
)

// ErrMalformedEvent is returned when an event cannot be decoded.
var ErrMalformedEvent = errors.New("malformed event")

// timestampLayouts are tried in order when decoding event timestamps.
// Zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Event is one timestamped telemetry or status record of a trip.
// Events are never mutated after ingestion.
type Event struct {
	EventID   string    `bson:"event_id" json:"event_id"`
	EventType string    `bson:"event_type" json:"event_type"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	VehicleID string    `bson:"vehicle_id" json:"vehicle_id"`
	TripID    string    `bson:"trip_id" json:"trip_id"`
	DeviceID  string    `bson:"device_id,omitempty" json:"device_id,omitempty"`
	Location  Location  `bson:"location" json:"location"`

	Movement  *Movement  `bson:"movement,omitempty" json:"movement,omitempty"`
	Device    *Device    `bson:"device,omitempty" json:"device,omitempty"`
	Telemetry *Telemetry `bson:"telemetry,omitempty" json:"telemetry,omitempty"`

	DistanceTravelledKm       *float64 `bson:"distance_travelled_km,omitempty" json:"distance_travelled_km,omitempty"`
	PlannedDistanceKm         *float64 `bson:"planned_distance_km,omitempty" json:"planned_distance_km,omitempty"`
	EstimatedDurationHours    *float64 `bson:"estimated_duration_hours,omitempty" json:"estimated_duration_hours,omitempty"`
	TotalDistanceKm           *float64 `bson:"total_distance_km,omitempty" json:"total_distance_km,omitempty"`
	DurationMinutes           *float64 `bson:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
	FuelConsumedPercent       *float64 `bson:"fuel_consumed_percent,omitempty" json:"fuel_consumed_percent,omitempty"`
	DistanceCompletedKm       *float64 `bson:"distance_completed_km,omitempty" json:"distance_completed_km,omitempty"`
	ElapsedTimeMinutes        *float64 `bson:"elapsed_time_minutes,omitempty" json:"elapsed_time_minutes,omitempty"`
	SpeedLimitKmh             *float64 `bson:"speed_limit_kmh,omitempty" json:"speed_limit_kmh,omitempty"`
	ViolationAmountKmh        *float64 `bson:"violation_amount_kmh,omitempty" json:"violation_amount_kmh,omitempty"`
	StopDurationMinutes       *float64 `bson:"stop_duration_minutes,omitempty" json:"stop_duration_minutes,omitempty"`
	BatteryLevelPercent       *float64 `bson:"battery_level_percent,omitempty" json:"battery_level_percent,omitempty"`
	ThresholdPercent          *float64 `bson:"threshold_percent,omitempty" json:"threshold_percent,omitempty"`
	EstimatedRemainingHours   *float64 `bson:"estimated_remaining_hours,omitempty" json:"estimated_remaining_hours,omitempty"`
	FuelLevelPercent          *float64 `bson:"fuel_level_percent,omitempty" json:"fuel_level_percent,omitempty"`
	EstimatedRangeKm          *float64 `bson:"estimated_range_km,omitempty" json:"estimated_range_km,omitempty"`
	RefuelDurationMinutes     *float64 `bson:"refuel_duration_minutes,omitempty" json:"refuel_duration_minutes,omitempty"`
	FuelLevelAfterRefuel      *float64 `bson:"fuel_level_after_refuel,omitempty" json:"fuel_level_after_refuel,omitempty"`
	FuelAddedPercent          *float64 `bson:"fuel_added_percent,omitempty" json:"fuel_added_percent,omitempty"`
	SignalLostDurationSeconds *float64 `bson:"signal_lost_duration_seconds,omitempty" json:"signal_lost_duration_seconds,omitempty"`

	SignalQuality              string `bson:"signal_quality,omitempty" json:"signal_quality,omitempty"`
	SignalQualityAfterRecovery string `bson:"signal_quality_after_recovery,omitempty" json:"signal_quality_after_recovery,omitempty"`
	CancellationReason         string `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	ErrorType                  string `bson:"error_type,omitempty" json:"error_type,omitempty"`
	ErrorCode                  string `bson:"error_code,omitempty" json:"error_code,omitempty"`
	ErrorMessage               string `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Severity                   string `bson:"severity,omitempty" json:"severity,omitempty"`
	Overspeed                  *bool  `bson:"overspeed,omitempty" json:"overspeed,omitempty"`
}

// UnmarshalJSON decodes an event, accepting RFC 3339 and zone-less ISO timestamps.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: event %q: %v", ErrMalformedEvent, e.EventID, err)
	}
	e.Timestamp = ts
	return nil
}

// ParseTimestamp parses an event timestamp in any of the accepted layouts.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// IsTerminal reports whether the event ends its trip.
func (e Event) IsTerminal() bool {
	return e.EventType == EventTripCompleted || e.EventType == EventTripCancelled
}

// Float returns a pointer to v, for populating optional event fields.
func Float(v float64) *float64 {
	return &v
}
