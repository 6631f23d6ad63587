package metrics

import (
	"fmt"
	"strconv"

	"github.com/ukydev/fleet-replay/internal/models"
)

const (
	// alertWindow is how many of the most recent events are scanned.
	alertWindow = 20
	// maxAlerts is how many alerts are kept, newest last.
	maxAlerts = 5
)

// ExtractAlerts classifies the most recent events of a time-ordered window into
// alerts and returns at most the last five, in chronological order.
func ExtractAlerts(events []models.Event) []models.Alert {
	if len(events) > alertWindow {
		events = events[len(events)-alertWindow:]
	}

	alerts := make([]models.Alert, 0, len(events))
	for _, e := range events {
		if alert, ok := alertFor(e); ok {
			alerts = append(alerts, alert)
		}
	}

	if len(alerts) > maxAlerts {
		alerts = alerts[len(alerts)-maxAlerts:]
	}
	return alerts
}

func alertFor(e models.Event) (models.Alert, bool) {
	var kind models.AlertKind
	var msg string

	switch e.EventType {
	case models.EventSpeedViolation:
		var speed *float64
		if e.Movement != nil {
			speed = &e.Movement.SpeedKmh
		}
		kind = models.AlertWarning
		msg = fmt.Sprintf("Speed violation: %skm/h (limit: %skm/h)", number(speed), number(e.SpeedLimitKmh))
	case models.EventFuelLevelLow:
		kind = models.AlertWarning
		msg = fmt.Sprintf("Low fuel: %s%%", number(e.FuelLevelPercent))
	case models.EventBatteryLow:
		kind = models.AlertWarning
		msg = fmt.Sprintf("Low battery: %s%%", number(e.BatteryLevelPercent))
	case models.EventDeviceError:
		kind = models.AlertError
		msg = "Device error: " + text(e.ErrorMessage)
	case models.EventSignalLost:
		kind = models.AlertWarning
		msg = "GPS signal lost"
	case models.EventTripCancelled:
		kind = models.AlertError
		msg = "Trip cancelled: " + text(e.CancellationReason)
	default:
		return models.Alert{}, false
	}

	return models.Alert{
		Kind:      kind,
		Message:   msg,
		Timestamp: e.Timestamp,
		EventType: e.EventType,
	}, true
}

func number(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func text(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
