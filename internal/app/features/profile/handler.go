// internal/app/features/profile/handler.go
package profile

import (
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/imagestore"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"go.uber.org/zap"
)

// DefaultNearbyRadiusKm is used when the nearby-donor search omits a radius.
const DefaultNearbyRadiusKm = 10

// Handler serves the signed-in user's own profile and public profiles.
type Handler struct {
	Users    *userstore.Store
	Images   imagestore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
}

// NewHandler constructs a profile Handler.
func NewHandler(users *userstore.Store, images imagestore.Store, n *notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Images:   images,
		Notifier: n,
		Log:      logger,
	}
}
