// Package metrics derives point-in-time trip and fleet metrics from the
// events visible on the replay clock. Every function here is pure.
package metrics

import (
	"math"
	"sync"

	"github.com/ukydev/fleet-replay/internal/models"
)

const (
	defaultFuelLevel    = 100.0
	defaultBatteryLevel = 100.0

	// parallelThreshold is the fleet size from which CalculateAll fans out.
	parallelThreshold = 16
)

// CalculateTrip projects trip onto the visible events. visible may contain
// events of other trips; only those matching trip.TripID are used.
func CalculateTrip(trip *models.Trip, visible []models.Event) models.TripMetrics {
	tripEvents := eventsOf(trip.TripID, visible)

	m := models.TripMetrics{
		TripID:       trip.TripID,
		VehicleID:    trip.VehicleID,
		TripName:     trip.Name,
		Status:       models.TripActive,
		FuelLevel:    defaultFuelLevel,
		BatteryLevel: defaultBatteryLevel,
		LastLocation: models.UnknownLocation,
		Alerts:       []models.Alert{},
	}
	if len(tripEvents) == 0 {
		return m
	}

	latest := tripEvents[len(tripEvents)-1]

	// Planning data is set once, on the trip's first logged event.
	if start, ok := trip.Start(); ok {
		m.TotalDistance = finite(value(trip.Events[0].PlannedDistanceKm, 0))
		m.StartTime = &start
	}

	m.DistanceTravelled = finite(value(latest.DistanceTravelledKm, 0))
	if latest.Movement != nil {
		m.CurrentSpeed = finite(latest.Movement.SpeedKmh)
	}
	m.FuelLevel = finite(fuelLevel(latest))
	if latest.Device != nil {
		m.BatteryLevel = finite(value(latest.Device.BatteryLevel, defaultBatteryLevel))
	}
	m.LastLocation = latest.Location
	m.Progress = progress(m.DistanceTravelled, m.TotalDistance)
	m.Status = models.StatusOf(latest.EventType)
	m.Alerts = ExtractAlerts(tripEvents)

	if latest.IsTerminal() {
		end := latest.Timestamp
		m.EndTime = &end
	}
	if latest.DurationMinutes != nil {
		d := *latest.DurationMinutes
		m.Duration = &d
	}
	return m
}

// CalculateAll derives metrics for every trip, in trip order.
func CalculateAll(trips []*models.Trip, visible []models.Event) []models.TripMetrics {
	out := make([]models.TripMetrics, len(trips))
	if len(trips) < parallelThreshold {
		for i, trip := range trips {
			out[i] = CalculateTrip(trip, visible)
		}
		return out
	}

	var wg sync.WaitGroup
	for i, trip := range trips {
		wg.Add(1)
		go func(i int, trip *models.Trip) {
			defer wg.Done()
			out[i] = CalculateTrip(trip, visible)
		}(i, trip)
	}
	wg.Wait()
	return out
}

func eventsOf(tripID string, visible []models.Event) []models.Event {
	var out []models.Event
	for _, e := range visible {
		if e.TripID == tripID {
			out = append(out, e)
		}
	}
	return out
}

// fuelLevel prefers the telemetry reading, then the top-level field.
func fuelLevel(e models.Event) float64 {
	if e.Telemetry != nil && e.Telemetry.FuelLevelPercent != nil {
		return *e.Telemetry.FuelLevelPercent
	}
	return value(e.FuelLevelPercent, defaultFuelLevel)
}

// progress is travelled/total as a percentage in [0, 100]; 0 when total is 0.
func progress(travelled, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := finite(travelled / total * 100)
	return math.Max(0, math.Min(p, 100))
}

func value(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// finite maps NaN and infinities to 0 so they never reach consumers.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
