// internal/app/features/listings/handler.go
package listings

import (
	"context"

	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/imagestore"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves listing CRUD, the feed and the request/fulfillment
// workflow.
type Handler struct {
	Client   *mongo.Client // fulfillment runs in a transaction when supported
	Listings *listingstore.Store
	Users    *userstore.Store
	Images   imagestore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
}

// NewHandler constructs a listings Handler.
func NewHandler(
	client *mongo.Client,
	listings *listingstore.Store,
	users *userstore.Store,
	images imagestore.Store,
	n *notify.Notifier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Client:   client,
		Listings: listings,
		Users:    users,
		Images:   images,
		Notifier: n,
		Log:      logger,
	}
}

// listingView is a listing as shown to one viewer: the owner's public
// profile is attached and the PIN is blanked unless the viewer may see it.
type listingView struct {
	models.Listing
	Owner *models.PublicUser `json:"owner,omitempty"`
}

func viewOf(l models.Listing, viewer primitive.ObjectID, owners map[primitive.ObjectID]models.PublicUser) listingView {
	if !l.CanSeePIN(viewer) {
		l.PIN = ""
	}
	v := listingView{Listing: l}
	if o, ok := owners[l.OwnerID]; ok {
		v.Owner = &o
	}
	return v
}

// decorate builds the views for ls. A failed owner lookup only drops the
// owner profiles.
func (h *Handler) decorate(ctx context.Context, viewer primitive.ObjectID, ls []models.Listing) []listingView {
	ids := make([]primitive.ObjectID, 0, len(ls))
	seen := make(map[primitive.ObjectID]bool, len(ls))
	for _, l := range ls {
		if !seen[l.OwnerID] {
			seen[l.OwnerID] = true
			ids = append(ids, l.OwnerID)
		}
	}
	owners, err := h.Users.PublicByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("owner lookup failed", zap.Error(err))
	}

	out := make([]listingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, viewOf(l, viewer, owners))
	}
	return out
}

func (h *Handler) decorateOne(ctx context.Context, viewer primitive.ObjectID, l models.Listing) listingView {
	return h.decorate(ctx, viewer, []models.Listing{l})[0]
}
