package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/auth"
	"github.com/ukydev/fleet-replay/internal/config"
	"github.com/ukydev/fleet-replay/internal/db"
	"github.com/ukydev/fleet-replay/internal/eventlog"
	"github.com/ukydev/fleet-replay/internal/handlers"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/ukydev/fleet-replay/internal/publish"
	"github.com/ukydev/fleet-replay/internal/simulation"
	"go.mongodb.org/mongo-driver/mongo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := config.SetupLogging(cfg); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Replay service stopped")
	}
}

// app is the wired replay service.
type app struct {
	session *simulation.Session
	handler http.Handler
	// closers run in reverse order on shutdown.
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}

	var (
		events    db.EventCollection
		operators db.OperatorCollection
	)
	if cfg.Mongo.Enabled() {
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		})
		events, operators = mongoCollections(client, cfg.Mongo)
		log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")
	}

	manifestPath := cfg.TripManifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(cfg.DataDir, manifestPath)
	}
	manifest, err := eventlog.LoadManifest(manifestPath, cfg.DataDir)
	if err != nil {
		a.close()
		return nil, err
	}
	sources, err := buildSources(manifest, events)
	if err != nil {
		a.close()
		return nil, err
	}

	trips := eventlog.Load(ctx, sources)
	if len(trips) == 0 {
		log.Warn("No trips loaded, the replay timeline is empty")
	}
	log.WithField("trips", len(trips)).Info("Trips loaded")

	sinks := []simulation.Sink{publish.LogSink{}}
	if cfg.MQTT.Enabled() {
		mqttSink, err := publish.NewMQTTSink(cfg.MQTT)
		if err != nil {
			log.WithError(err).Warn("MQTT publishing disabled")
		} else {
			sinks = append(sinks, mqttSink)
			a.closers = append(a.closers, mqttSink.Close)
		}
	}

	a.session = simulation.NewSession(trips, simulation.Options{
		TickInterval: cfg.Replay.TickInterval,
		TickStep:     cfg.Replay.TickStep,
		Speed:        cfg.Replay.InitialSpeed,
		Sinks:        sinks,
	})
	a.closers = append(a.closers, a.session.Close)

	opts := handlers.RouterOptions{
		Control:     handlers.NewControlHandler(a.session),
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.Auth.Enabled {
		store, err := operatorStore(cfg.Auth, operators)
		if err != nil {
			a.close()
			return nil, err
		}
		authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
		if authService.UsesDefaultSecret() {
			log.Warn("JWT_SECRET is not set, using the development default")
		}
		opts.AuthService = authService
		opts.Auth = handlers.NewAuthHandler(authService, store)
	}
	a.handler = handlers.NewRouter(opts)

	if cfg.Replay.Autoplay {
		a.session.Play()
	}
	return a, nil
}

func mongoCollections(client *mongo.Client, cfg config.MongoConfig) (db.EventCollection, db.OperatorCollection) {
	database := client.Database(cfg.Database)
	return &db.MongoEventCollection{Collection: database.Collection(cfg.EventsCollection)},
		&db.MongoOperatorCollection{Collection: database.Collection(cfg.OperatorsCollection)}
}

// buildSources maps manifest entries to event sources. Entries naming a trip
// id need the MongoDB event collection.
func buildSources(m eventlog.Manifest, events db.EventCollection) ([]eventlog.Source, error) {
	sources := make([]eventlog.Source, 0, len(m.Trips))
	for _, entry := range m.Trips {
		if entry.TripID != "" {
			if events == nil {
				return nil, fmt.Errorf("trip %s (%s) is stored in MongoDB but MONGO_URI is not set", entry.TripID, entry.Name)
			}
			sources = append(sources, db.MongoSource{Events: events, TripID: entry.TripID, TripName: entry.Name})
			continue
		}
		sources = append(sources, eventlog.FileSource{Path: entry.Path, TripName: entry.Name})
	}
	return sources, nil
}

// operatorStore prefers the operator configured in the environment and
// falls back to the MongoDB collection.
func operatorStore(cfg config.AuthConfig, mongoOperators db.OperatorCollection) (db.OperatorCollection, error) {
	if cfg.OperatorUsername != "" {
		if cfg.OperatorPasswordHash == "" {
			return nil, errors.New("OPERATOR_PASSWORD_HASH is required with OPERATOR_USERNAME")
		}
		store := &db.StaticOperators{}
		err := store.InsertOperator(context.Background(), models.Operator{
			Username:     cfg.OperatorUsername,
			PasswordHash: cfg.OperatorPasswordHash,
			Role:         models.RoleOperator,
		})
		return store, err
	}
	if mongoOperators != nil {
		return mongoOperators, nil
	}
	return nil, errors.New("AUTH_ENABLED needs OPERATOR_USERNAME or MONGO_URI for operator accounts")
}
