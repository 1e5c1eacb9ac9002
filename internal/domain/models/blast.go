// internal/domain/models/blast.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResponderAccepted is the only responder status a donor can record.
const ResponderAccepted = "accepted"

// EmergencyBlast is a broadcast SOS sent to donors near the requester.
type EmergencyBlast struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterID   primitive.ObjectID `bson:"requester_id" json:"requester_id"`
	Message       string             `bson:"message" json:"message"`
	BloodGroup    string             `bson:"blood_group,omitempty" json:"blood_group,omitempty"`
	Location      GeoPoint           `bson:"location" json:"location"`
	RadiusKm      float64            `bson:"radius_km" json:"radius_km"`
	NotifiedCount int                `bson:"notified_count" json:"notified_count"`
	Responders    []BlastResponder   `bson:"responders" json:"responders"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// BlastResponder is one donor's acknowledgement of a blast.
type BlastResponder struct {
	DonorID     primitive.ObjectID `bson:"donor_id" json:"donor_id"`
	Status      string             `bson:"status" json:"status"`
	RespondedAt time.Time          `bson:"responded_at" json:"responded_at"`
}

