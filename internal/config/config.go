// Package config reads the replay service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting of the replay service.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DataDir      string
	TripManifest string

	Replay ReplayConfig
	Mongo  MongoConfig
	MQTT   MQTTConfig
	Auth   AuthConfig

	CORSOrigins []string
}

// ReplayConfig drives the simulation session.
type ReplayConfig struct {
	TickInterval time.Duration
	TickStep     time.Duration
	InitialSpeed float64
	Autoplay     bool
}

// MongoConfig selects the event and operator collections. An empty URI
// disables MongoDB.
type MongoConfig struct {
	URI                 string
	Database            string
	EventsCollection    string
	OperatorsCollection string
}

// Enabled reports whether a MongoDB URI is configured.
func (c MongoConfig) Enabled() bool { return c.URI != "" }

// MQTTConfig configures snapshot publishing. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Enabled reports whether an MQTT broker is configured.
func (c MQTTConfig) Enabled() bool { return c.Broker != "" }

// AuthConfig configures the control surface authentication.
type AuthConfig struct {
	Enabled              bool
	JWTSecret            string
	JWTExpiry            time.Duration
	OperatorUsername     string
	OperatorPasswordHash string
}

// Load reads .env files (missing files are ignored) and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() (Config, error) {
	p := parser{}
	tickInterval := p.duration("REPLAY_TICK_INTERVAL", 100*time.Millisecond)
	qos := p.int("MQTT_QOS", 0)
	if qos < 0 || qos > 2 {
		p.fail("MQTT_QOS", strconv.Itoa(qos), errors.New("must be 0, 1 or 2"))
	}

	cfg := Config{
		Port:         str("PORT", "8080"),
		LogLevel:     str("LOG_LEVEL", "info"),
		LogFormat:    str("LOG_FORMAT", "text"),
		DataDir:      str("DATA_DIR", "data"),
		TripManifest: str("TRIP_MANIFEST", "trips.yaml"),
		Replay: ReplayConfig{
			TickInterval: tickInterval,
			// One tick covers its own real duration at 1x unless overridden.
			TickStep:     p.duration("REPLAY_TICK_STEP", tickInterval),
			InitialSpeed: p.float("REPLAY_INITIAL_SPEED", 1),
			Autoplay:     p.bool("REPLAY_AUTOPLAY", false),
		},
		Mongo: MongoConfig{
			URI:                 str("MONGO_URI", ""),
			Database:            str("MONGO_DB", "fleet"),
			EventsCollection:    str("MONGO_EVENTS_COLLECTION", "trip_events"),
			OperatorsCollection: str("MONGO_OPERATORS_COLLECTION", "operators"),
		},
		MQTT: MQTTConfig{
			Broker:      str("MQTT_BROKER", ""),
			ClientID:    str("MQTT_CLIENT_ID", "fleet-replay"),
			Username:    str("MQTT_USERNAME", ""),
			Password:    str("MQTT_PASSWORD", ""),
			TopicPrefix: strings.TrimSuffix(str("MQTT_TOPIC_PREFIX", "fleet/replay"), "/"),
			QoS:         byte(qos),
		},
		Auth: AuthConfig{
			Enabled:              p.bool("AUTH_ENABLED", false),
			JWTSecret:            str("JWT_SECRET", ""),
			JWTExpiry:            p.duration("JWT_EXPIRY", 24*time.Hour),
			OperatorUsername:     str("OPERATOR_USERNAME", ""),
			OperatorPasswordHash: str("OPERATOR_PASSWORD_HASH", ""),
		},
		CORSOrigins: list("CORS_ORIGINS"),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Replay.TickInterval <= 0:
		return errors.New("REPLAY_TICK_INTERVAL must be positive")
	case c.Replay.TickStep <= 0:
		return errors.New("REPLAY_TICK_STEP must be positive")
	case c.Replay.InitialSpeed <= 0:
		return errors.New("REPLAY_INITIAL_SPEED must be positive")
	case c.MQTT.QoS > 2:
		return errors.New("MQTT_QOS must be 0, 1 or 2")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// SetupLogging applies the configured level and formatter to logrus.
func SetupLogging(cfg Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) float(key string, def float64) float64 {
	v := str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) int(key string, def int) int {
	v := str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}
