package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-replay/internal/config"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/ukydev/fleet-replay/internal/simulation"
)

type message struct {
	topic   string
	qos     byte
	payload []byte
}

func snapshot() simulation.Snapshot {
	now := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	return simulation.Snapshot{
		State: simulation.State{State: simulation.Playing, IsPlaying: true, Speed: 10, CurrentTime: &now, Progress: 0.5},
		Trips: []models.TripMetrics{
			{TripID: "TRIP_A", Status: models.TripActive, Progress: 40},
			{TripID: "TRIP_B", Status: models.TripCompleted, Progress: 100},
		},
		Fleet: models.FleetMetrics{TotalTrips: 2, ActiveTrips: 1, CompletedTrips: 1},
	}
}

func TestMQTTSink_TopicLayout(t *testing.T) {
	var sent []message
	sink := newMQTTSink("fleet/replay", 1, func(topic string, qos byte, payload []byte) error {
		sent = append(sent, message{topic, qos, payload})
		return nil
	})

	require.NoError(t, sink.Publish(context.Background(), snapshot()))

	require.Len(t, sent, 4)
	assert.Equal(t, "fleet/replay/state", sent[0].topic)
	assert.Equal(t, "fleet/replay/fleet", sent[1].topic)
	assert.Equal(t, "fleet/replay/trips/TRIP_A", sent[2].topic)
	assert.Equal(t, "fleet/replay/trips/TRIP_B", sent[3].topic)
	for _, m := range sent {
		assert.Equal(t, byte(1), m.qos)
	}

	var state simulation.State
	require.NoError(t, json.Unmarshal(sent[0].payload, &state))
	assert.True(t, state.IsPlaying)
	assert.Equal(t, 10.0, state.Speed)

	var fleet models.FleetMetrics
	require.NoError(t, json.Unmarshal(sent[1].payload, &fleet))
	assert.Equal(t, 2, fleet.TotalTrips)

	var trip models.TripMetrics
	require.NoError(t, json.Unmarshal(sent[3].payload, &trip))
	assert.Equal(t, models.TripCompleted, trip.Status)
}

func TestMQTTSink_StopsOnError(t *testing.T) {
	calls := 0
	brokerErr := errors.New("not connected")
	sink := newMQTTSink("fleet/replay", 0, func(topic string, qos byte, payload []byte) error {
		calls++
		if topic == "fleet/replay/fleet" {
			return brokerErr
		}
		return nil
	})

	err := sink.Publish(context.Background(), snapshot())
	assert.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), "fleet/replay/fleet")
	assert.Equal(t, 2, calls)
}

func TestMQTTSink_CancelledContext(t *testing.T) {
	sink := newMQTTSink("fleet/replay", 0, func(string, byte, []byte) error {
		t.Fatal("nothing is published after cancellation")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Publish(ctx, snapshot()), context.Canceled)
}

func TestMQTTSink_CloseWithoutClient(t *testing.T) {
	sink := newMQTTSink("fleet/replay", 0, func(string, byte, []byte) error { return nil })
	assert.NotPanics(t, sink.Close)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetLevel(log.DebugLevel)
	logger.SetFormatter(&log.JSONFormatter{})

	require.NoError(t, LogSink{Logger: logger}.Publish(context.Background(), snapshot()))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Replay snapshot", entry["msg"])
	assert.Equal(t, "playing", entry["state"])
	assert.Equal(t, float64(1), entry["active_trips"])
}

// Integration test (requires a running MQTT broker)
func TestNewMQTTSink_Integration(t *testing.T) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		t.Skip("MQTT_BROKER not set, skipping integration test")
	}
	sink, err := NewMQTTSink(config.MQTTConfig{Broker: broker, ClientID: "fleet-replay-test", TopicPrefix: "fleet/replay-test"})
	require.NoError(t, err)
	defer sink.Close()

	assert.NoError(t, sink.Publish(context.Background(), snapshot()))
}
