package notify

import (
	"context"
	"fmt"

	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/push"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/realtime"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Users is the slice of the user store the notifier reads.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	NearbyDonors(ctx context.Context, q userstore.NearbyQuery) ([]models.User, error)
}

// Notifier turns workflow transitions into realtime events and push jobs.
// Realtime publishes happen inline (they never block); everything that
// touches the database or a push provider runs on the dispatcher.
type Notifier struct {
	RT    realtime.Publisher
	Push  push.Sender
	Users Users
	Jobs  *Dispatcher
	Log   *zap.Logger

	// EmergencyRadiusKm bounds the donor search for emergency listings.
	EmergencyRadiusKm float64
}

// ListingEvent is the payload of listing:* and sos:* events.
type ListingEvent struct {
	ListingID     primitive.ObjectID      `json:"listing_id"`
	Title         string                  `json:"title"`
	Status        string                  `json:"status"`
	CounterpartID primitive.ObjectID      `json:"counterpart_id"`
	Counterpart   string                  `json:"counterpart_name,omitempty"`
	Conversation  *models.ConversationKey `json:"conversation,omitempty"`
}

// MessageNotice is the badge payload of message:new.
type MessageNotice struct {
	MessageID  primitive.ObjectID `json:"message_id"`
	ListingID  primitive.ObjectID `json:"listing_id"`
	SenderID   primitive.ObjectID `json:"sender_id"`
	SenderName string             `json:"sender_name"`
	Preview    string             `json:"preview"`
}

// BlastResponseEvent is the payload of blast:response.
type BlastResponseEvent struct {
	BlastID   primitive.ObjectID `json:"blast_id"`
	DonorID   primitive.ObjectID `json:"donor_id"`
	DonorName string             `json:"donor_name"`
	Responses int                `json:"responses"`
}

// RoleEvent is the payload of role:changed.
type RoleEvent struct {
	ActiveRole string `json:"active_role"`
	IsAdmin    bool   `json:"is_admin"`
}

func listingData(l models.Listing) map[string]string {
	return map[string]string{"listing_id": l.ID.Hex(), "status": l.Status}
}

// ListingRequested tells the owner that requester asked for l.
func (n *Notifier) ListingRequested(l models.Listing, requester models.PublicUser) {
	n.RT.ToUser(l.OwnerID, realtime.Event{Type: realtime.EventListingRequested, Data: ListingEvent{
		ListingID:     l.ID,
		Title:         l.Title,
		Status:        l.Status,
		CounterpartID: requester.ID,
		Counterpart:   requester.Name,
	}})
	n.pushUser("listing_requested", l.OwnerID, push.Notification{
		Title: "New request",
		Body:  fmt.Sprintf("%s requested %q", requester.Name, l.Title),
		Data:  listingData(l),
	})
}

// ListingApproved tells the receiver they were chosen, with the conversation
// key so the client can open the chat directly.
func (n *Notifier) ListingApproved(l models.Listing, owner models.PublicUser) {
	if l.ReceiverID == nil {
		return
	}
	receiver := *l.ReceiverID
	key := models.NewConversationKey(l.ID, l.OwnerID, receiver)
	n.RT.ToUser(receiver, realtime.Event{Type: realtime.EventListingApproved, Data: ListingEvent{
		ListingID:     l.ID,
		Title:         l.Title,
		Status:        l.Status,
		CounterpartID: l.OwnerID,
		Counterpart:   owner.Name,
		Conversation:  &key,
	}})
	n.pushUser("listing_approved", receiver, push.Notification{
		Title: "Request approved",
		Body:  fmt.Sprintf("%s approved your request for %q", owner.Name, l.Title),
		Data:  listingData(l),
	})
}

// ListingFulfilled tells the receiver the handover was confirmed.
func (n *Notifier) ListingFulfilled(l models.Listing) {
	if l.ReceiverID == nil {
		return
	}
	n.RT.ToUser(*l.ReceiverID, realtime.Event{Type: realtime.EventListingFulfilled, Data: ListingEvent{
		ListingID:     l.ID,
		Title:         l.Title,
		Status:        l.Status,
		CounterpartID: l.OwnerID,
	}})
}

// DonorEnRoute tells the owner of an emergency listing that helper accepted.
func (n *Notifier) DonorEnRoute(l models.Listing, helper models.PublicUser) {
	key := models.NewConversationKey(l.ID, l.OwnerID, helper.ID)
	n.RT.ToUser(l.OwnerID, realtime.Event{Type: realtime.EventDonorEnRoute, Data: ListingEvent{
		ListingID:     l.ID,
		Title:         l.Title,
		Status:        l.Status,
		CounterpartID: helper.ID,
		Counterpart:   helper.Name,
		Conversation:  &key,
	}})
	n.pushUser("donor_en_route", l.OwnerID, push.Notification{
		Title: "A donor is on the way",
		Body:  fmt.Sprintf("%s accepted your emergency request", helper.Name),
		Data:  listingData(l),
	})
}

// EmergencyListing alerts donors near a new emergency blood listing. The
// donor search runs on the dispatcher so a failure never affects the create.
func (n *Notifier) EmergencyListing(l models.Listing) {
	n.Jobs.Enqueue(Job{Kind: "emergency_listing", Run: func(ctx context.Context) error {
		donors, err := n.Users.NearbyDonors(ctx, userstore.NearbyQuery{
			Point:      l.Location,
			RadiusKm:   n.EmergencyRadiusKm,
			BloodGroup: l.BloodGroup,
			ExcludeID:  l.OwnerID,
		})
		if err != nil {
			return err
		}
		return n.send(ctx, DeviceTokens(donors), push.Notification{
			Title: "Emergency: blood needed nearby",
			Body:  l.Title,
			Data:  listingData(l),
		})
	}})
}

// EmergencyBlast pushes b to the already selected recipients.
func (n *Notifier) EmergencyBlast(b models.EmergencyBlast, recipients []models.User) {
	tokens := DeviceTokens(recipients)
	if len(tokens) == 0 {
		return
	}
	title := "SOS: blood needed nearby"
	if b.BloodGroup != "" {
		title = fmt.Sprintf("SOS: %s blood needed nearby", b.BloodGroup)
	}
	n.Jobs.Enqueue(Job{Kind: "emergency_blast", Run: func(ctx context.Context) error {
		return n.send(ctx, tokens, push.Notification{
			Title: title,
			Body:  b.Message,
			Data:  map[string]string{"blast_id": b.ID.Hex()},
		})
	}})
}

// BlastResponse tells the requester that donor acknowledged b.
func (n *Notifier) BlastResponse(b models.EmergencyBlast, donor models.PublicUser) {
	n.RT.ToUser(b.RequesterID, realtime.Event{Type: realtime.EventBlastResponse, Data: BlastResponseEvent{
		BlastID:   b.ID,
		DonorID:   donor.ID,
		DonorName: donor.Name,
		Responses: len(b.Responders),
	}})
}

const previewLen = 80

// NewMessage publishes a badge to the receiver, the message to the
// conversation room, and a push to the receiver's devices whether or not
// they are connected.
func (n *Notifier) NewMessage(m models.Message, sender models.PublicUser) {
	preview := []rune(m.Content)
	if len(preview) > previewLen {
		preview = append(preview[:previewLen], '…')
	}
	n.RT.ToUser(m.ReceiverID, realtime.Event{Type: realtime.EventMessageNew, Data: MessageNotice{
		MessageID:  m.ID,
		ListingID:  m.ListingID,
		SenderID:   m.SenderID,
		SenderName: sender.Name,
		Preview:    string(preview),
	}})
	n.RT.ToRoom(m.Key().Room(), realtime.Event{Type: realtime.EventMessageReceive, Data: m})
	n.pushUser("new_message", m.ReceiverID, push.Notification{
		Title: sender.Name,
		Body:  string(preview),
		Data:  map[string]string{"listing_id": m.ListingID.Hex(), "sender_id": m.SenderID.Hex()},
	})
}

// MessageEdited updates open chat windows.
func (n *Notifier) MessageEdited(m models.Message) {
	n.RT.ToRoom(m.Key().Room(), realtime.Event{Type: realtime.EventMessageEdited, Data: m})
}

// MessageDeleted removes the message from open chat windows.
func (n *Notifier) MessageDeleted(m models.Message) {
	n.RT.ToRoom(m.Key().Room(), realtime.Event{Type: realtime.EventMessageDeleted, Data: map[string]any{
		"id":         m.ID,
		"listing_id": m.ListingID,
	}})
}

// RoleChanged lets u's clients react to a role or privilege change.
func (n *Notifier) RoleChanged(u models.User) {
	n.RT.ToUser(u.ID, realtime.Event{Type: realtime.EventRoleChanged, Data: RoleEvent{
		ActiveRole: u.ActiveRole,
		IsAdmin:    u.IsAdmin,
	}})
}

// AdminAlert broadcasts msg to every connected client.
func (n *Notifier) AdminAlert(msg string) {
	n.RT.Broadcast(realtime.Event{Type: realtime.EventAdminAlert, Data: map[string]string{"message": msg}})
}

// DeviceTokens collects every push token the users registered.
func DeviceTokens(users []models.User) []string {
	var out []string
	for _, u := range users {
		if u.PushToken != "" {
			out = append(out, u.PushToken)
		}
		if u.WebPushToken != "" {
			out = append(out, u.WebPushToken)
		}
	}
	return out
}

func (n *Notifier) pushUser(kind string, userID primitive.ObjectID, msg push.Notification) {
	n.Jobs.Enqueue(Job{Kind: kind, Run: func(ctx context.Context) error {
		u, err := n.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		return n.send(ctx, DeviceTokens([]models.User{u}), msg)
	}})
}

func (n *Notifier) send(ctx context.Context, tokens []string, msg push.Notification) error {
	if len(tokens) == 0 {
		return nil
	}
	res, err := n.Push.Send(ctx, tokens, msg)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		n.Log.Debug("push partially delivered", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	}
	return nil
}
