package cloudsync

import (
	"context"
	"time"

	"github.com/mamadbah2/cableshop/internal/repository/mongodb"
)

// MongoRemote upserts one snapshot document per device and entity type.
type MongoRemote struct {
	repo mongodb.SnapshotRepository
	now  func() time.Time
}

// NewMongoRemote wraps a snapshot repository. A nil repository yields an
// unconfigured remote.
func NewMongoRemote(repo mongodb.SnapshotRepository) *MongoRemote {
	return &MongoRemote{repo: repo, now: time.Now}
}

// Name identifies the remote in logs.
func (r *MongoRemote) Name() string { return "mongo" }

// Configured reports whether a repository is connected.
func (r *MongoRemote) Configured() bool { return r.repo != nil }

// Push replaces the stored snapshot of each entity type.
func (r *MongoRemote) Push(ctx context.Context, batch Batch) error {
	syncedAt := r.now().UTC()
	for _, key := range batch.Keys() {
		err := r.repo.UpsertSnapshot(ctx, mongodb.Snapshot{
			DeviceID:    batch.DeviceID,
			Entity:      key,
			Payload:     string(batch.Entities[key]),
			GeneratedAt: batch.GeneratedAt,
			SyncedAt:    syncedAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
