// internal/app/features/admin/moderation.go
package admin

import (
	"context"
	"net/http"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const maxBroadcastLen = 500

// HandleDeleteListing handles DELETE /api/admin/listings/{id}.
func (h *Handler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
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

	l, err := h.Listings.Remove(ctx, id)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("listing removed by admin", zap.String("listing_id", id.Hex()), zap.String("actor_id", su.ID.Hex()))
	h.AuditLog.ListingRemoved(ctx, r, su.ID, l.ID, l.OwnerID, l.Title)
	httpx.Message(w, http.StatusOK, "listing removed")
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// HandleBroadcast handles POST /api/admin/broadcast: an admin:alert to every
// connected client.
func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	var req broadcastRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	msg := htmlsanitize.PlainTextMax(req.Message, maxBroadcastLen)
	if msg == "" {
		httpx.Error(w, r, h.Log, apperr.Validation("message is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	h.Notifier.AdminAlert(msg)
	h.AuditLog.BroadcastSent(ctx, r, su.ID, msg)
	httpx.Message(w, http.StatusOK, "broadcast sent")
}
