package publish

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/simulation"
)

// LogSink writes a one-line fleet summary per snapshot at debug level.
type LogSink struct {
	Logger *log.Logger
}

// Publish logs the snapshot.
func (s LogSink) Publish(_ context.Context, snap simulation.Snapshot) error {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	fields := log.Fields{
		"state":           snap.State.State,
		"speed":           snap.State.Speed,
		"progress":        snap.State.Progress,
		"visible_events":  snap.State.VisibleEvents,
		"active_trips":    snap.Fleet.ActiveTrips,
		"completed_trips": snap.Fleet.CompletedTrips,
		"cancelled_trips": snap.Fleet.CancelledTrips,
		"critical_alerts": snap.Fleet.CriticalAlerts,
	}
	if snap.State.CurrentTime != nil {
		fields["current_time"] = *snap.State.CurrentTime
	}
	logger.WithFields(fields).Debug("Replay snapshot")
	return nil
}
