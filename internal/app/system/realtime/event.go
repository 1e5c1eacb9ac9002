// Package realtime delivers server events to connected websocket clients,
// addressed to a user, a conversation room, or everyone.
package realtime

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Server event types.
const (
	EventRoleChanged      = "role:changed"
	EventMessageNew       = "message:new"
	EventMessageReceive   = "message:receive"
	EventMessageEdited    = "message:edited"
	EventMessageDeleted   = "message:deleted"
	EventListingRequested = "listing:requested"
	EventListingApproved  = "listing:approved"
	EventListingFulfilled = "listing:fulfilled"
	EventDonorEnRoute     = "sos:en_route"
	EventBlastResponse    = "blast:response"
	EventAdminAlert       = "admin:alert"
)

// Event is one server-to-client frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher fans events out to sockets. Delivery is fire-and-forget: a
// client that is offline or too slow simply misses the event.
type Publisher interface {
	ToUser(userID primitive.ObjectID, ev Event)
	ToRoom(room string, ev Event)
	Broadcast(ev Event)
}
