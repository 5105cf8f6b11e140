// internal/output/mongodb.go
package output

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/LeadScout/internal/utils"
)

const mongoDuplicateKey = 11000

// MongoDBWriter stores business records as documents
type MongoDBWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	onConflict ConflictStrategy
	timeout    time.Duration
	inserted   int64
	logger     utils.Logger
	now        func() time.Time
}

// NewMongoDBWriter connects and makes sure the duplicate guarding index exists
func NewMongoDBWriter(cfg Config) (*MongoDBWriter, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if cfg.Database == "" {
		cfg.Database = "leadscout"
	}
	if cfg.Collection == "" {
		cfg.Collection = "businesses"
	}
	onConflict := cfg.OnConflict
	if onConflict == "" {
		onConflict = ConflictIgnore
	}

	timeout := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.DSN).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(10 * time.Minute)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeDatabaseError, "failed to connect to MongoDB").WithCause(err).Build()
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, utils.NewError(utils.ErrCodeDatabaseError, "failed to ping MongoDB").WithCause(err).Build()
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "region", Value: 1}, {Key: "industry", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("business_identity"),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	logger := utils.NewComponentLogger("output.mongodb")
	logger.Infof("connected to MongoDB database %s, collection %s", cfg.Database, cfg.Collection)

	return &MongoDBWriter{
		client:     client,
		collection: collection,
		onConflict: onConflict,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// businessDocument keeps column order and leaves absent fields out
func businessDocument(row map[string]interface{}, createdAt time.Time) bson.D {
	doc := make(bson.D, 0, len(BusinessColumns)+1)
	for _, key := range BusinessColumns {
		if v, ok := row[key]; ok && v != nil {
			doc = append(doc, bson.E{Key: key, Value: v})
		}
	}
	return append(doc, bson.E{Key: "created_at", Value: createdAt.UTC()})
}

// Write inserts the batch using a bounded background context
func (mw *MongoDBWriter) Write(data []map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), mw.timeout)
	defer cancel()
	return mw.WriteContext(ctx, data)
}

// WriteContext inserts the batch. With ConflictIgnore duplicates are skipped
// and the rest of the batch is still stored.
func (mw *MongoDBWriter) WriteContext(ctx context.Context, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	now := mw.now()
	docs := make([]interface{}, 0, len(data))
	for _, row := range data {
		docs = append(docs, businessDocument(row, now))
	}

	opts := options.InsertMany().SetOrdered(mw.onConflict != ConflictIgnore)
	result, err := mw.collection.InsertMany(ctx, docs, opts)
	if err == nil {
		mw.inserted += int64(len(result.InsertedIDs))
		return nil
	}
	if dups, ok := duplicatesOnly(err); ok && mw.onConflict == ConflictIgnore {
		// InsertedIDs lists every attempted document
		mw.inserted += int64(len(data) - dups)
		mw.logger.Infof("skipped %d businesses already stored", dups)
		return nil
	}
	return fmt.Errorf("failed to insert records: %w", err)
}

// duplicatesOnly reports how many writes failed when every failure is a
// duplicate key
func duplicatesOnly(err error) (int, bool) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return 0, false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != mongoDuplicateKey {
			return 0, false
		}
	}
	return len(bwe.WriteErrors), true
}

// Inserted returns how many documents were actually written
func (mw *MongoDBWriter) Inserted() int64 {
	return mw.inserted
}

// Close disconnects the client
func (mw *MongoDBWriter) Close() error {
	if mw.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := mw.client.Disconnect(ctx)
	mw.client = nil
	return err
}
