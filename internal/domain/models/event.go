// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventRetention is how long an event stays after its date before the TTL
// index removes it.
const EventRetention = 24 * time.Hour

// Event is a community event (donation drive, blood camp). ExpireAt carries
// the TTL index.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Date        time.Time          `bson:"date" json:"date"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	Location    *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	ExpireAt    time.Time          `bson:"expire_at" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
