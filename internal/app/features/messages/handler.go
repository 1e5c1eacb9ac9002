// internal/app/features/messages/handler.go
package messages

import (
	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	messagestore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/messages"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"go.uber.org/zap"
)

const maxContentLen = 2000

// Handler serves the per-listing chat between two users.
type Handler struct {
	Messages *messagestore.Store
	Listings *listingstore.Store
	Users    *userstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
}

func NewHandler(
	msgs *messagestore.Store,
	listings *listingstore.Store,
	users *userstore.Store,
	n *notify.Notifier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Messages: msgs,
		Listings: listings,
		Users:    users,
		Notifier: n,
		Log:      logger,
	}
}
