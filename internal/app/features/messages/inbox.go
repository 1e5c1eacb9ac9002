// internal/app/features/messages/inbox.go
package messages

import (
	"context"
	"net/http"

	messagestore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/messages"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listingRef struct {
	ID    primitive.ObjectID `json:"id"`
	Title string             `json:"title,omitempty"`
}

// inboxItem is one conversation as listed in the inbox.
type inboxItem struct {
	Conversation models.ConversationKey `json:"conversation"`
	Room         string                 `json:"room"`
	Listing      listingRef             `json:"listing"`
	Counterpart  models.PublicUser      `json:"counterpart"`
	LastMessage  models.Message         `json:"last_message"`
	UnreadCount  int                    `json:"unread_count"`
}

// ServeInbox handles GET /api/messages/inbox.
func (h *Handler) ServeInbox(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.Messages.Inbox(ctx, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.decorate(ctx, entries))
}

// decorate attaches counterpart profiles and listing titles. Lookup
// failures leave those fields sparse rather than failing the inbox.
func (h *Handler) decorate(ctx context.Context, entries []messagestore.InboxEntry) []inboxItem {
	userIDs := make([]primitive.ObjectID, 0, len(entries))
	listingIDs := make([]primitive.ObjectID, 0, len(entries))
	for _, e := range entries {
		userIDs = append(userIDs, e.Counterpart)
		listingIDs = append(listingIDs, e.ListingID)
	}

	people, err := h.Users.PublicByIDs(ctx, userIDs)
	if err != nil {
		h.Log.Warn("inbox counterpart lookup failed", zap.Error(err))
	}
	titles, err := h.Listings.Titles(ctx, listingIDs)
	if err != nil {
		h.Log.Warn("inbox listing lookup failed", zap.Error(err))
	}

	out := make([]inboxItem, 0, len(entries))
	for _, e := range entries {
		cp, ok := people[e.Counterpart]
		if !ok {
			cp = models.PublicUser{ID: e.Counterpart}
		}
		out = append(out, inboxItem{
			Conversation: e.Key,
			Room:         e.Key.Room(),
			Listing:      listingRef{ID: e.ListingID, Title: titles[e.ListingID]},
			Counterpart:  cp,
			LastMessage:  e.Last,
			UnreadCount:  e.Unread,
		})
	}
	return out
}

// ServeUnread handles GET /api/messages/unread.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.UnreadCount(ctx, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

// threadParams reads {listingID}/{counterpartID}.
func threadParams(r *http.Request) (listing, counterpart primitive.ObjectID, err error) {
	if listing, err = httpx.ObjectIDParam(r, "listingID"); err != nil {
		return
	}
	counterpart, err = httpx.ObjectIDParam(r, "counterpartID")
	return
}

// ServeThread handles GET /api/messages/thread/{listingID}/{counterpartID}:
// the conversation in chronological order.
func (h *Handler) ServeThread(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	listing, counterpart, err := threadParams(r)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msgs, err := h.Messages.Thread(ctx, listing, su.ID, counterpart)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, msgs)
}

// HandleMarkRead handles PUT /api/messages/thread/{listingID}/{counterpartID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	listing, counterpart, err := threadParams(r)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.MarkRead(ctx, listing, su.ID, counterpart)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}
