package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-replay/internal/config"
	"github.com/ukydev/fleet-replay/internal/db"
	"github.com/ukydev/fleet-replay/internal/eventlog"
	"github.com/ukydev/fleet-replay/internal/tripgen"
)

type options struct {
	outDir     string
	manifest   string
	count      int
	seed       int64
	start      string
	interval   time.Duration
	maxRouteKm float64
	mongo      bool
}

var (
	opts    options
	rootCmd = &cobra.Command{
		Use:   "tripgen",
		Short: "Generate synthetic trip logs for the replay service",
		Long: `tripgen writes reproducible trip event logs as JSON files together
with a trips.yaml manifest the replay service can load.

With --mongo the events are also stored in MongoDB (MONGO_URI) and the
manifest references the stored trips by id instead of by file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.SetupLogging(cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Write a manifest of every trip stored in MongoDB",
	Long: `manifest lists the trip ids stored in the MongoDB events collection
(MONGO_URI) and writes a manifest that replays all of them.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.SetupLogging(cfg); err != nil {
			return err
		}
		if !cfg.Mongo.Enabled() {
			return fmt.Errorf("manifest requires MONGO_URI")
		}
		ctx := cmd.Context()
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		}()

		events := &db.MongoEventCollection{Collection: client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.EventsCollection)}
		return writeStoredManifest(ctx, events, filepath.Join(opts.outDir, opts.manifest))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(manifestCmd)

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&opts.outDir, "out", "o", "data", "directory for the generated trip files")
	persistent.StringVar(&opts.manifest, "manifest", "trips.yaml", "manifest file name, written inside --out")

	flags := rootCmd.Flags()
	flags.IntVarP(&opts.count, "count", "n", 5, "number of trips to generate")
	flags.Int64Var(&opts.seed, "seed", 1, "random seed; equal seeds give equal output")
	flags.StringVar(&opts.start, "start", "2024-03-01T08:00:00Z", "earliest trip start (RFC 3339)")
	flags.DurationVar(&opts.interval, "interval", 5*time.Minute, "virtual time between location updates")
	flags.Float64Var(&opts.maxRouteKm, "max-route-km", 600, "cap on route length; 0 disables the cap")
	flags.BoolVar(&opts.mongo, "mongo", false, "also store the events in MongoDB")
}

func run(ctx context.Context, cfg config.Config, o options) error {
	if o.count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", o.count)
	}
	if o.interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", o.interval)
	}
	start, err := time.Parse(time.RFC3339, o.start)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}

	gen := tripgen.New(o.seed)
	gen.Interval = o.interval
	gen.MaxRouteKm = o.maxRouteKm
	trips := gen.GenerateFleet(o.count, start)

	manifest, err := tripgen.WriteFiles(o.outDir, trips)
	if err != nil {
		return err
	}

	if o.mongo {
		if !cfg.Mongo.Enabled() {
			return fmt.Errorf("--mongo requires MONGO_URI")
		}
		manifest, err = seedMongo(ctx, cfg.Mongo, trips)
		if err != nil {
			return err
		}
	}

	path := filepath.Join(o.outDir, o.manifest)
	if err := manifest.Write(path); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"trips":    len(trips),
		"manifest": path,
		"seed":     o.seed,
	}).Info("Trip logs generated")
	return nil
}

// seedMongo replaces each trip's stored events and returns a manifest that
// references the trips by id.
func seedMongo(ctx context.Context, cfg config.MongoConfig, trips []tripgen.Trip) (eventlog.Manifest, error) {
	client, err := db.ConnectMongo(ctx, cfg.URI)
	if err != nil {
		return eventlog.Manifest{}, err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()

	events := &db.MongoEventCollection{Collection: client.Database(cfg.Database).Collection(cfg.EventsCollection)}
	return storeTrips(ctx, events, trips)
}

func storeTrips(ctx context.Context, events db.EventCollection, trips []tripgen.Trip) (eventlog.Manifest, error) {
	var manifest eventlog.Manifest
	for _, trip := range trips {
		if err := events.DeleteTrip(ctx, trip.Plan.TripID); err != nil {
			return eventlog.Manifest{}, err
		}
		if err := events.InsertEvents(ctx, trip.Events); err != nil {
			return eventlog.Manifest{}, err
		}
		log.WithFields(log.Fields{
			"trip_id": trip.Plan.TripID,
			"events":  len(trip.Events),
		}).Info("Stored trip in MongoDB")
		manifest.Trips = append(manifest.Trips, eventlog.ManifestEntry{Name: trip.Plan.Name, TripID: trip.Plan.TripID})
	}
	return manifest, nil
}

// writeStoredManifest writes a manifest naming every stored trip by id.
func writeStoredManifest(ctx context.Context, events db.EventCollection, path string) error {
	ids, err := events.TripIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored trips: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no trips stored in MongoDB")
	}

	var manifest eventlog.Manifest
	for _, id := range ids {
		manifest.Trips = append(manifest.Trips, eventlog.ManifestEntry{Name: id, TripID: id})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := manifest.Write(path); err != nil {
		return err
	}
	log.WithFields(log.Fields{"trips": len(ids), "manifest": path}).Info("Manifest of stored trips written")
	return nil
}
