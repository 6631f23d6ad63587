package eventlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestEntry names one trip source. Exactly one of Path or TripID is set:
// Path points at a JSON file, TripID selects a trip stored in MongoDB.
type ManifestEntry struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path,omitempty"`
	TripID string `yaml:"trip_id,omitempty"`
}

// Manifest lists the trips to replay.
type Manifest struct {
	Trips []ManifestEntry `yaml:"trips"`
}

// DefaultManifest returns the stock five-trip data set under dataDir.
func DefaultManifest(dataDir string) Manifest {
	return Manifest{Trips: []ManifestEntry{
		{Name: "Cross-Country Long Haul", Path: filepath.Join(dataDir, "trip_1_cross_country.json")},
		{Name: "Urban Dense Delivery", Path: filepath.Join(dataDir, "trip_2_urban_dense.json")},
		{Name: "Mountain Route Cancelled", Path: filepath.Join(dataDir, "trip_3_mountain_cancelled.json")},
		{Name: "Southern Technical Issues", Path: filepath.Join(dataDir, "trip_4_southern_technical.json")},
		{Name: "Regional Logistics", Path: filepath.Join(dataDir, "trip_5_regional_logistics.json")},
	}}
}

// LoadManifest reads a YAML manifest. Relative file paths are resolved
// against dataDir. A missing manifest file yields DefaultManifest(dataDir).
func LoadManifest(path, dataDir string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultManifest(dataDir), nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	for i, entry := range m.Trips {
		switch {
		case entry.Path != "" && entry.TripID != "":
			return Manifest{}, fmt.Errorf("manifest entry %d (%s): path and trip_id are exclusive", i, entry.Name)
		case entry.Path == "" && entry.TripID == "":
			return Manifest{}, fmt.Errorf("manifest entry %d (%s): path or trip_id required", i, entry.Name)
		case entry.Path != "" && !filepath.IsAbs(entry.Path):
			m.Trips[i].Path = filepath.Join(dataDir, entry.Path)
		}
	}
	return m, nil
}

// Write stores the manifest as YAML at path.
func (m Manifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
