package tripgen

import (
	"math"
	"math/rand"

	"github.com/ukydev/fleet-replay/internal/models"
)

// City is a named route endpoint.
type City struct {
	Name     string
	Location models.Location
}

// Cities for realistic routes
var cities = []City{
	{"London", models.Location{Lat: 51.5074, Lng: -0.1278}},
	{"Cardiff", models.Location{Lat: 51.4816, Lng: -3.1791}},
	{"Paris", models.Location{Lat: 48.8566, Lng: 2.3522}},
	{"Madrid", models.Location{Lat: 40.4168, Lng: -3.7038}},
	{"Berlin", models.Location{Lat: 52.5200, Lng: 13.4050}},
	{"Istanbul", models.Location{Lat: 41.0082, Lng: 28.9784}},
	{"New York", models.Location{Lat: 40.7128, Lng: -74.0060}},
	{"Toronto", models.Location{Lat: 43.6532, Lng: -79.3832}},
	{"Los Angeles", models.Location{Lat: 34.0522, Lng: -118.2437}},
	{"San Francisco", models.Location{Lat: 37.7749, Lng: -122.4194}},
	{"Sydney", models.Location{Lat: -33.8688, Lng: 151.2093}},
	{"Melbourne", models.Location{Lat: -37.8136, Lng: 144.9631}},
	{"Dubai", models.Location{Lat: 25.2048, Lng: 55.2708}},
	{"Mumbai", models.Location{Lat: 19.0760, Lng: 72.8777}},
	{"São Paulo", models.Location{Lat: -23.5505, Lng: -46.6333}},
	{"Johannesburg", models.Location{Lat: -26.2041, Lng: 28.0473}},
}

const earthRadiusKm = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func haversineKm(a, b models.Location) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

// bearing is the initial compass heading from a to b, in [0, 360).
func bearing(a, b models.Location) float64 {
	y := math.Sin(radians(b.Lng-a.Lng)) * math.Cos(radians(b.Lat))
	x := math.Cos(radians(a.Lat))*math.Sin(radians(b.Lat)) -
		math.Sin(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Cos(radians(b.Lng-a.Lng))
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

func jitter(rng *rand.Rand, base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(radians(base.Lat))
	dLat := (rng.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rng.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}
