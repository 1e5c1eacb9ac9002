// internal/app/features/emergency/handler.go
package emergency

import (
	blaststore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/blasts"
	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"go.uber.org/zap"
)

// DefaultRadiusKm bounds the blast when no radius is configured.
const DefaultRadiusKm = 20

// Handler serves SOS blasts and the acceptance of emergency listings.
type Handler struct {
	Blasts   *blaststore.Store
	Listings *listingstore.Store
	Users    *userstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger

	RadiusKm float64
}

func NewHandler(
	blasts *blaststore.Store,
	listings *listingstore.Store,
	users *userstore.Store,
	n *notify.Notifier,
	radiusKm float64,
	logger *zap.Logger,
) *Handler {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &Handler{
		Blasts:   blasts,
		Listings: listings,
		Users:    users,
		Notifier: n,
		RadiusKm: radiusKm,
		Log:      logger,
	}
}
