// Package publish pushes replay snapshots to the presentation layer.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/config"
	"github.com/ukydev/fleet-replay/internal/simulation"
)

const publishTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// publishFunc sends one retained message.
type publishFunc func(topic string, qos byte, payload []byte) error

// MQTTSink publishes every snapshot as retained JSON messages:
//
//	<prefix>/state            clock state
//	<prefix>/fleet            fleet metrics
//	<prefix>/trips/<tripId>   metrics of one trip
type MQTTSink struct {
	prefix  string
	qos     byte
	client  mqtt.Client
	publish publishFunc
}

// NewMQTTSink connects to the broker and returns a ready sink.
func NewMQTTSink(cfg config.MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetWill(cfg.TopicPrefix+"/status", "offline", cfg.QoS, true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
		c.Publish(cfg.TopicPrefix+"/status", cfg.QoS, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).WithField("broker", cfg.Broker).Warn("Lost MQTT connection, reconnecting")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	s := newMQTTSink(cfg.TopicPrefix, cfg.QoS, func(topic string, qos byte, payload []byte) error {
		t := client.Publish(topic, qos, true, payload)
		if !t.WaitTimeout(publishTimeout) {
			return ErrPublishTimeout
		}
		return t.Error()
	})
	s.client = client
	return s, nil
}

func newMQTTSink(prefix string, qos byte, publish publishFunc) *MQTTSink {
	return &MQTTSink{prefix: prefix, qos: qos, publish: publish}
}

// Publish sends the snapshot. It stops at the first failed message.
func (s *MQTTSink) Publish(ctx context.Context, snap simulation.Snapshot) error {
	if err := s.send(ctx, s.prefix+"/state", snap.State); err != nil {
		return err
	}
	if err := s.send(ctx, s.prefix+"/fleet", snap.Fleet); err != nil {
		return err
	}
	for _, trip := range snap.Trips {
		if err := s.send(ctx, s.prefix+"/trips/"+trip.TripID, trip); err != nil {
			return err
		}
	}
	return nil
}

func (s *MQTTSink) send(ctx context.Context, topic string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", topic, err)
	}
	if err := s.publish(topic, s.qos, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// Close marks the replay offline and disconnects.
func (s *MQTTSink) Close() {
	if s.client == nil || !s.client.IsConnected() {
		return
	}
	s.client.Publish(s.prefix+"/status", s.qos, true, "offline").WaitTimeout(time.Second)
	s.client.Disconnect(250)
	log.Info("Disconnected from MQTT broker")
}
