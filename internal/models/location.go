package models

// Location represents a geographical fix reported with an event.
type Location struct {
	Lat            float64  `bson:"lat" json:"lat"`
	Lng            float64  `bson:"lng" json:"lng"`
	AccuracyMeters *float64 `bson:"accuracy_meters,omitempty" json:"accuracy_meters,omitempty"`
	AltitudeMeters *float64 `bson:"altitude_meters,omitempty" json:"altitude_meters,omitempty"`
}

// UnknownLocation is the (0,0) marker used when a trip has no visible fix yet.
// Map consumers must filter it out rather than plot it.
var UnknownLocation = Location{}

// IsUnknown reports whether l is the unknown-location marker.
func (l Location) IsUnknown() bool {
	return l.Lat == 0 && l.Lng == 0
}
