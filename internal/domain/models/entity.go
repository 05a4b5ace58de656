package models

import "time"

// Entity is implemented by every record kept in an entity store.
type Entity interface {
	EntityID() int64
	EntityCreatedAt() time.Time
	Stamp(id int64, createdAt time.Time)
}

// Base carries the identity fields shared by all stored records.
type Base struct {
	ID        int64     `json:"id" bson:"id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// EntityID returns the record identifier.
func (b Base) EntityID() int64 { return b.ID }

// EntityCreatedAt returns the immutable creation timestamp.
func (b Base) EntityCreatedAt() time.Time { return b.CreatedAt }

// Stamp assigns identity fields. Stores call it on create and to restore identity after updates.
func (b *Base) Stamp(id int64, createdAt time.Time) {
	b.ID = id
	b.CreatedAt = createdAt
}
