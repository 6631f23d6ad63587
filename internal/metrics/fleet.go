package metrics

import "github.com/ukydev/fleet-replay/internal/models"

// CalculateFleet aggregates the metrics of all trips at the same instant.
func CalculateFleet(trips []*models.Trip, visible []models.Event) models.FleetMetrics {
	return Aggregate(CalculateAll(trips, visible))
}

// Aggregate folds already-derived trip metrics into fleet metrics. The
// average speed only counts trips that are moving.
func Aggregate(tripMetrics []models.TripMetrics) models.FleetMetrics {
	fm := models.FleetMetrics{TotalTrips: len(tripMetrics)}

	var speedSum float64
	var moving int
	for _, m := range tripMetrics {
		switch m.Status {
		case models.TripCompleted:
			fm.CompletedTrips++
		case models.TripCancelled:
			fm.CancelledTrips++
		default:
			fm.ActiveTrips++
		}

		fm.TotalDistance += m.DistanceTravelled
		if m.CurrentSpeed > 0 {
			speedSum += m.CurrentSpeed
			moving++
		}

		fm.TotalAlerts += len(m.Alerts)
		for _, a := range m.Alerts {
			if a.IsCritical() {
				fm.CriticalAlerts++
			}
		}
	}

	if moving > 0 {
		fm.AverageSpeed = speedSum / float64(moving)
	}
	return fm
}
