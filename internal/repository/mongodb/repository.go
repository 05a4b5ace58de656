package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Snapshot is the stored copy of one entity collection pushed by a device.
type Snapshot struct {
	ID          string    `bson:"_id"`
	DeviceID    string    `bson:"device_id"`
	Entity      string    `bson:"entity"`
	Payload     string    `bson:"payload"`
	GeneratedAt time.Time `bson:"generated_at"`
	SyncedAt    time.Time `bson:"synced_at"`
}

// SnapshotRepository stores the latest snapshot per device and entity type.
type SnapshotRepository interface {
	UpsertSnapshot(ctx context.Context, snapshot Snapshot) error
	FindSnapshot(ctx context.Context, deviceID, entity string) (*Snapshot, error)
}

// MongoDBRepository implements SnapshotRepository for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "snapshots",
	}, nil
}

// SnapshotID is the document key for a device and entity type.
func SnapshotID(deviceID, entity string) string {
	return deviceID + ":" + entity
}

// UpsertSnapshot replaces the stored snapshot, inserting it when absent.
func (r *MongoDBRepository) UpsertSnapshot(ctx context.Context, snapshot Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = SnapshotID(snapshot.DeviceID, snapshot.Entity)
	}
	collection := r.client.Database(r.dbName).Collection(r.collName)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": snapshot.ID}, snapshot, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// FindSnapshot returns the stored snapshot or nil when none exists.
func (r *MongoDBRepository) FindSnapshot(ctx context.Context, deviceID, entity string) (*Snapshot, error) {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	var out Snapshot
	err := collection.FindOne(ctx, bson.M{"_id": SnapshotID(deviceID, entity)}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot: %w", err)
	}
	return &out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
