// Package tripgen produces synthetic pre-recorded trip logs for replay.
package tripgen

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/fleet-replay/internal/models"
)

// Plan describes one trip to generate.
type Plan struct {
	TripID      string
	VehicleID   string
	Name        string
	Origin      City
	Destination City
	Start       time.Time
	// CancelAt is the fraction of the route after which the trip is
	// cancelled. Zero lets the trip complete.
	CancelAt     float64
	CancelReason string
}

// Generator turns plans into event logs. It is deterministic for a seed.
type Generator struct {
	rng *rand.Rand

	// Interval is the virtual time between location updates.
	Interval      time.Duration
	CruiseKmh     float64
	SpeedLimitKmh float64
	// MaxRouteKm caps the route length so long-haul pairs stay replayable.
	MaxRouteKm float64
}

// New returns a generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{
		rng:           rand.New(rand.NewSource(seed)),
		Interval:      5 * time.Minute,
		CruiseKmh:     80,
		SpeedLimitKmh: 100,
		MaxRouteKm:    600,
	}
}

var cancelReasons = []string{
	"Road closure due to weather",
	"Vehicle breakdown",
	"Customer cancelled delivery",
	"Driver reported unsafe conditions",
}

// RandomPlan draws a plan for the n-th trip. Roughly one trip in five is cancelled.
func (g *Generator) RandomPlan(n int, start time.Time) Plan {
	origin := cities[g.rng.Intn(len(cities))]
	dest := origin
	for dest.Name == origin.Name {
		dest = cities[g.rng.Intn(len(cities))]
	}
	plan := Plan{
		TripID:      fmt.Sprintf("TRIP_%03d", n),
		VehicleID:   fmt.Sprintf("VH-%03d", n),
		Name:        fmt.Sprintf("%s to %s", origin.Name, dest.Name),
		Origin:      origin,
		Destination: dest,
		Start:       start.Add(time.Duration(g.rng.Intn(60)) * time.Minute),
	}
	if g.rng.Float64() < 0.2 {
		plan.CancelAt = 0.3 + g.rng.Float64()*0.5
		plan.CancelReason = cancelReasons[g.rng.Intn(len(cancelReasons))]
	}
	return plan
}

// trip is the running state of one generated trip.
type trip struct {
	plan      Plan
	routeKm   float64
	dest      models.Location
	now       time.Time
	travelled float64
	speed     float64
	fuel      float64
	battery   float64
	odometer  float64
	events    []models.Event

	lowFuelSent    bool
	lowBatterySent bool
	signalLost     bool
}

// maxSteps bounds a single trip's location updates.
const maxSteps = 5000

// Generate produces the full, time-ordered event log for plan.
func (g *Generator) Generate(plan Plan) []models.Event {
	t := &trip{
		plan:     plan,
		dest:     plan.Destination.Location,
		now:      plan.Start,
		fuel:     70 + g.rng.Float64()*30,
		battery:  60 + g.rng.Float64()*40,
		odometer: 10000 + g.rng.Float64()*90000,
	}
	t.routeKm = haversineKm(plan.Origin.Location, t.dest)
	if g.MaxRouteKm > 0 && t.routeKm > g.MaxRouteKm {
		// Shorten the leg along the same line.
		t.dest = lerp(plan.Origin.Location, t.dest, g.MaxRouteKm/t.routeKm)
		t.routeKm = haversineKm(plan.Origin.Location, t.dest)
	}
	t.routeKm = math.Max(t.routeKm, 1)

	start := g.event(t, models.EventTripStarted)
	start.PlannedDistanceKm = models.Float(round(t.routeKm, 1))
	start.EstimatedDurationHours = models.Float(round(t.routeKm/g.CruiseKmh, 2))
	t.events = append(t.events, start)
	startFuel := t.fuel

	for step := 0; step < maxSteps; step++ {
		t.now = t.now.Add(g.Interval)
		t.speed = math.Max(20, math.Min(130, g.CruiseKmh+(g.rng.Float64()*2-1)*25))
		km := t.speed * g.Interval.Hours()
		t.travelled = math.Min(t.routeKm, t.travelled+km)
		t.odometer += km
		t.fuel = math.Max(0, t.fuel-km*0.09)
		t.battery = math.Max(0, t.battery-0.4)

		if plan.CancelAt > 0 && t.travelled/t.routeKm >= plan.CancelAt {
			g.cancel(t)
			return t.events
		}
		if t.travelled >= t.routeKm {
			break
		}
		g.update(t)
	}

	done := g.event(t, models.EventTripCompleted)
	done.Location = t.dest
	done.DistanceTravelledKm = models.Float(round(t.routeKm, 1))
	done.TotalDistanceKm = models.Float(round(t.routeKm, 1))
	done.DurationMinutes = models.Float(round(t.now.Sub(plan.Start).Minutes(), 1))
	done.FuelConsumedPercent = models.Float(round(startFuel-t.fuel, 1))
	t.events = append(t.events, done)
	return t.events
}

// update emits the location update of the current step plus any incidents.
func (g *Generator) update(t *trip) {
	if t.signalLost {
		rec := g.event(t, models.EventSignalRecovered)
		rec.SignalLostDurationSeconds = models.Float(g.Interval.Seconds())
		rec.SignalQualityAfterRecovery = "good"
		t.events = append(t.events, rec)
		t.signalLost = false
	}

	loc := g.event(t, models.EventLocationUpdate)
	loc.DistanceTravelledKm = models.Float(round(t.travelled, 1))
	t.events = append(t.events, loc)

	switch r := g.rng.Float64(); {
	case r < 0.05:
		t.speed = g.SpeedLimitKmh + 5 + g.rng.Float64()*35
		v := g.event(t, models.EventSpeedViolation)
		v.SpeedLimitKmh = models.Float(g.SpeedLimitKmh)
		v.ViolationAmountKmh = models.Float(round(t.speed-g.SpeedLimitKmh, 1))
		v.Overspeed = boolPtr(true)
		t.events = append(t.events, v)
	case r < 0.07:
		e := g.event(t, models.EventDeviceError)
		e.ErrorType = "gps_module"
		e.ErrorCode = fmt.Sprintf("E%03d", 100+g.rng.Intn(50))
		e.ErrorMessage = "GPS module not responding"
		e.Severity = "high"
		t.events = append(t.events, e)
	case r < 0.09:
		lost := g.event(t, models.EventSignalLost)
		lost.SignalQuality = "none"
		t.events = append(t.events, lost)
		t.signalLost = true
	}

	if t.battery < 20 && !t.lowBatterySent {
		b := g.event(t, models.EventBatteryLow)
		b.BatteryLevelPercent = models.Float(round(t.battery, 1))
		b.ThresholdPercent = models.Float(20)
		t.events = append(t.events, b)
		t.lowBatterySent = true
	}

	if t.fuel < 15 && !t.lowFuelSent {
		low := g.event(t, models.EventFuelLevelLow)
		low.FuelLevelPercent = models.Float(round(t.fuel, 1))
		low.ThresholdPercent = models.Float(15)
		low.EstimatedRangeKm = models.Float(round(t.fuel/0.09, 0))
		t.events = append(t.events, low)
		t.lowFuelSent = true
		g.refuel(t)
	}
}

func (g *Generator) refuel(t *trip) {
	t.speed = 0
	t.now = t.now.Add(time.Minute)
	stop := g.event(t, models.EventVehicleStopped)
	stop.StopDurationMinutes = models.Float(20)
	started := g.event(t, models.EventRefuelingStarted)
	t.events = append(t.events, stop, started)

	before := t.fuel
	t.fuel = 95
	t.now = t.now.Add(20 * time.Minute)
	done := g.event(t, models.EventRefuelingCompleted)
	done.RefuelDurationMinutes = models.Float(20)
	done.FuelLevelAfterRefuel = models.Float(t.fuel)
	done.FuelAddedPercent = models.Float(round(t.fuel-before, 1))
	t.lowFuelSent = false

	t.speed = g.CruiseKmh
	moving := g.event(t, models.EventVehicleMoving)
	t.events = append(t.events, done, moving)
}

func (g *Generator) cancel(t *trip) {
	t.speed = 0
	c := g.event(t, models.EventTripCancelled)
	c.CancellationReason = t.plan.CancelReason
	if c.CancellationReason == "" {
		c.CancellationReason = cancelReasons[0]
	}
	c.DistanceTravelledKm = models.Float(round(t.travelled, 1))
	c.DistanceCompletedKm = models.Float(round(t.travelled, 1))
	c.ElapsedTimeMinutes = models.Float(round(t.now.Sub(t.plan.Start).Minutes(), 1))
	t.events = append(t.events, c)
}

// event builds an event carrying the trip's current position and readings.
func (g *Generator) event(t *trip, eventType string) models.Event {
	frac := t.travelled / math.Max(t.routeKm, 1)
	pos := jitter(g.rng, lerp(t.plan.Origin.Location, t.dest, frac), 50)
	pos.AccuracyMeters = models.Float(round(3+g.rng.Float64()*7, 1))

	return models.Event{
		EventID:   g.eventID(),
		EventType: eventType,
		Timestamp: t.now.UTC(),
		VehicleID: t.plan.VehicleID,
		TripID:    t.plan.TripID,
		DeviceID:  "DEV-" + t.plan.VehicleID,
		Location:  pos,
		Movement: &models.Movement{
			SpeedKmh:       round(t.speed, 1),
			HeadingDegrees: round(bearing(t.plan.Origin.Location, t.dest), 0),
			Moving:         t.speed > 0,
		},
		Device: &models.Device{BatteryLevel: models.Float(round(t.battery, 1))},
		Telemetry: &models.Telemetry{
			OdometerKm:         round(t.odometer, 1),
			FuelLevelPercent:   models.Float(round(t.fuel, 1)),
			EngineHours:        round(t.now.Sub(t.plan.Start).Hours(), 2),
			CoolantTempCelsius: round(85+g.rng.Float64()*10, 1),
			OilPressureKpa:     round(250+g.rng.Float64()*100, 0),
			BatteryVoltage:     round(12.4+g.rng.Float64()*1.6, 2),
		},
	}
}

// eventID draws a UUID from the seeded source so output is reproducible.
func (g *Generator) eventID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func boolPtr(b bool) *bool { return &b }
