package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/fleet-replay/internal/models"
)

func TestCalculateFleet(t *testing.T) {
	movingA := at(1, models.EventLocationUpdate)
	movingA.Movement = &models.Movement{SpeedKmh: 60}
	movingA.DistanceTravelledKm = models.Float(12)
	tripA := newTrip("A", at(0, models.EventTripStarted), movingA)

	movingB := at(2, models.EventSpeedViolation)
	movingB.Movement = &models.Movement{SpeedKmh: 100}
	movingB.DistanceTravelledKm = models.Float(30)
	tripB := newTrip("B", movingB)

	stoppedErr := at(3, models.EventDeviceError)
	stoppedErr.ErrorMessage = "reboot"
	done := at(4, models.EventTripCompleted)
	done.DistanceTravelledKm = models.Float(8)
	tripC := newTrip("C", stoppedErr, done)

	cancelled := at(5, models.EventTripCancelled)
	tripD := newTrip("D", cancelled)

	notStarted := newTrip("E", at(50, models.EventTripStarted))

	trips := []*models.Trip{tripA, tripB, tripC, tripD, notStarted}
	var visible []models.Event
	for _, trip := range trips[:4] {
		visible = append(visible, trip.Events...)
	}

	fm := CalculateFleet(trips, visible)

	assert.Equal(t, 5, fm.TotalTrips)
	assert.Equal(t, 3, fm.ActiveTrips)
	assert.Equal(t, 1, fm.CompletedTrips)
	assert.Equal(t, 1, fm.CancelledTrips)
	assert.Equal(t, 50.0, fm.TotalDistance)
	assert.Equal(t, 80.0, fm.AverageSpeed, "stationary trips do not drag the average down")
	// speed violation (warning), device error (error), cancellation (error)
	assert.Equal(t, 3, fm.TotalAlerts)
	assert.Equal(t, 2, fm.CriticalAlerts)
}

func TestAggregate_NoMovement(t *testing.T) {
	fm := Aggregate([]models.TripMetrics{{Status: models.TripActive}, {Status: models.TripCompleted}})
	assert.Zero(t, fm.AverageSpeed)
	assert.Equal(t, 2, fm.TotalTrips)

	assert.Equal(t, models.FleetMetrics{}, Aggregate(nil))
}
