// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a single chat message about a listing between two users.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	ReceiverID primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	ListingID  primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	Content    string             `bson:"content" json:"content"`
	Read       bool               `bson:"read" json:"read"`
	Edited     bool               `bson:"edited" json:"edited"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// ConversationKey identifies the thread between two users about one listing.
// UserA always holds the smaller ObjectID so the key is the same from either
// side.
type ConversationKey struct {
	ListingID primitive.ObjectID `json:"listing_id"`
	UserA     primitive.ObjectID `json:"user_a"`
	UserB     primitive.ObjectID `json:"user_b"`
}

// NewConversationKey orders the two participants.
func NewConversationKey(listingID, u1, u2 primitive.ObjectID) ConversationKey {
	if u2.Hex() < u1.Hex() {
		u1, u2 = u2, u1
	}
	return ConversationKey{ListingID: listingID, UserA: u1, UserB: u2}
}

// Key returns the conversation key for the message.
func (m Message) Key() ConversationKey {
	return NewConversationKey(m.ListingID, m.SenderID, m.ReceiverID)
}

// Counterpart returns the participant that is not me.
func (m Message) Counterpart(me primitive.ObjectID) primitive.ObjectID {
	if m.SenderID == me {
		return m.ReceiverID
	}
	return m.SenderID
}

// Room is the realtime room name for the conversation. It is only used as an
// opaque routing label and is never parsed back.
func (k ConversationKey) Room() string {
	return "conv:" + k.ListingID.Hex() + ":" + k.UserA.Hex() + ":" + k.UserB.Hex()
}
