// internal/domain/models/listing.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing types.
const (
	ListingDonation = "donation"
	ListingRequest  = "request"
)

// Listing categories.
const (
	CategoryFood    = "food"
	CategoryClothes = "clothes"
	CategoryBooks   = "books"
	CategoryBlood   = "blood"
	CategoryOther   = "other"
)

// Listing statuses. Transitions only move forward:
// active -> pending -> fulfilled.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusFulfilled = "fulfilled"
)

// IsValidListingType reports whether t is a known listing type.
func IsValidListingType(t string) bool {
	return t == ListingDonation || t == ListingRequest
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	switch c {
	case CategoryFood, CategoryClothes, CategoryBooks, CategoryBlood, CategoryOther:
		return true
	}
	return false
}

// IsValidStatus reports whether s is a known listing status.
func IsValidStatus(s string) bool {
	return s == StatusActive || s == StatusPending || s == StatusFulfilled
}

// Listing is a donation offer or a request for help.
//
// Invariants:
//   - ReceiverID is set if and only if Status != active.
//   - RequestedBy only grows while Status == active.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	ListingType string             `bson:"listing_type" json:"listing_type"`
	Category    string             `bson:"category" json:"category"`

	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Quantity    string `bson:"quantity,omitempty" json:"quantity,omitempty"`
	BloodGroup  string `bson:"blood_group,omitempty" json:"blood_group,omitempty"`
	Address     string `bson:"address,omitempty" json:"address,omitempty"`
	ImageURL    string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	RequestedBy []primitive.ObjectID `bson:"requested_by" json:"requested_by"`
	ReceiverID  *primitive.ObjectID  `bson:"receiver_id,omitempty" json:"receiver_id,omitempty"`

	// PIN is the pickup handshake code. Handlers blank it for anyone other
	// than the owner and the approved receiver.
	PIN string `bson:"pin" json:"pin,omitempty"`

	Location    GeoPoint `bson:"location" json:"location"`
	IsEmergency bool     `bson:"is_emergency" json:"is_emergency"`
	Status      string   `bson:"status" json:"status"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	FulfilledAt *time.Time `bson:"fulfilled_at,omitempty" json:"fulfilled_at,omitempty"`
}

// CanSeePIN reports whether viewer is the owner or the approved receiver.
func (l Listing) CanSeePIN(viewer primitive.ObjectID) bool {
	if viewer == l.OwnerID {
		return true
	}
	return l.ReceiverID != nil && *l.ReceiverID == viewer
}
