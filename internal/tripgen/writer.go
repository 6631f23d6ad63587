package tripgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/eventlog"
	"github.com/ukydev/fleet-replay/internal/models"
)

// Trip is one generated trip log.
type Trip struct {
	Plan   Plan
	Events []models.Event
}

// GenerateFleet plans and generates count trips starting around start.
func (g *Generator) GenerateFleet(count int, start time.Time) []Trip {
	trips := make([]Trip, 0, count)
	for i := 1; i <= count; i++ {
		plan := g.RandomPlan(i, start)
		trips = append(trips, Trip{Plan: plan, Events: g.Generate(plan)})
	}
	return trips
}

// FileName is the JSON file name of the n-th trip.
func FileName(n int, name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	return fmt.Sprintf("trip_%d_%s.json", n, slug)
}

// WriteFiles stores each trip as a JSON array under dir and writes a manifest
// with paths relative to dir.
func WriteFiles(dir string, trips []Trip) (eventlog.Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eventlog.Manifest{}, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var manifest eventlog.Manifest
	for i, trip := range trips {
		file := FileName(i+1, trip.Plan.Name)
		data, err := json.MarshalIndent(trip.Events, "", "  ")
		if err != nil {
			return eventlog.Manifest{}, fmt.Errorf("failed to marshal %s: %w", trip.Plan.TripID, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			return eventlog.Manifest{}, fmt.Errorf("failed to write %s: %w", file, err)
		}
		log.WithFields(log.Fields{
			"trip_id": trip.Plan.TripID,
			"file":    file,
			"events":  len(trip.Events),
		}).Info("Wrote trip log")
		manifest.Trips = append(manifest.Trips, eventlog.ManifestEntry{Name: trip.Plan.Name, Path: file})
	}
	return manifest, nil
}
