package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

// documentCollection is the part of *mongo.Collection the store relies on.
type documentCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoStore keeps one document per delivered listing, unique on url.
type MongoStore struct {
	client *mongo.Client
	coll   documentCollection
	now    func() time.Time
}

var _ ports.CheckpointStore = (*MongoStore)(nil)

// OpenMongo connects, pings and makes sure the url index is unique.
func OpenMongo(ctx context.Context, uri, database, collection string, log *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrStore, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrStore, err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("url_unique"),
	})
	if err != nil && log != nil {
		// Older collections may already hold duplicate urls; dedup still works through Exists.
		log.Warn("could not ensure unique url index", "collection", collection, "error", err)
	}

	return &MongoStore{client: client, coll: coll, now: time.Now}, nil
}

func newMongoStoreWithCollection(coll documentCollection) *MongoStore {
	return &MongoStore{coll: coll, now: time.Now}
}

// Exists reports whether url already has a processing record.
func (s *MongoStore) Exists(ctx context.Context, url string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"url": url}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%w: count processed: %v", domain.ErrStore, err)
	}
	return n > 0, nil
}

// RecordProcessed inserts the record; a duplicate url is treated as already recorded.
func (s *MongoStore) RecordProcessed(ctx context.Context, url, title string) error {
	_, err := s.coll.InsertOne(ctx, domain.ProcessingRecord{
		URL:         url,
		Title:       title,
		ProcessedAt: s.now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: insert processed: %v", domain.ErrStore, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
