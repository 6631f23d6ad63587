package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ukydev/fleet-replay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errNilCollection = errors.New("mongo collection is nil")

// ConnectMongo connects to MongoDB and pings it within 10 seconds.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoEventCollection wraps a MongoDB collection of trip events.
type MongoEventCollection struct {
	Collection *mongo.Collection
}

// InsertEvents inserts a batch of events.
func (c *MongoEventCollection) InsertEvents(ctx context.Context, events []models.Event) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, len(events))
	for i, e := range events {
		docs[i] = e
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return err
}

// FindTripEvents returns the events of one trip ordered by timestamp.
func (c *MongoEventCollection) FindTripEvents(ctx context.Context, tripID string) ([]models.Event, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"trip_id": tripID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// TripIDs lists the distinct trip ids in the collection, sorted.
func (c *MongoEventCollection) TripIDs(ctx context.Context) ([]string, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	values, err := c.Collection.Distinct(ctx, "trip_id", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteTrip removes every event of a trip.
func (c *MongoEventCollection) DeleteTrip(ctx context.Context, tripID string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{"trip_id": tripID})
	return err
}
