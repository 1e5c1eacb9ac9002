// internal/app/features/emergency/accept.go
package emergency

import (
	"context"
	"net/http"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// HandleAccept handles PUT /api/emergency/listings/{id}/accept. The first
// donor to accept becomes the receiver; later accepts get 400.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Listings.AcceptSOS(ctx, id, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("sos accepted", zap.String("listing_id", id.Hex()), zap.String("donor_id", su.ID.Hex()))
	h.Notifier.DonorEnRoute(l, models.PublicUser{ID: su.ID, Name: su.Name, ActiveRole: su.ActiveRole})

	// The helper is now the receiver and may see the handover PIN.
	httpx.JSON(w, http.StatusOK, l)
}
