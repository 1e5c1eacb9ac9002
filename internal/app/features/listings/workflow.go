// internal/app/features/listings/workflow.go
package listings

import (
	"context"
	"net/http"
	"strings"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/txn"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// caller returns the signed-in user with their public name, for event
// payloads.
func caller(r *http.Request) (models.PublicUser, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok || su.ID.IsZero() {
		return models.PublicUser{}, false
	}
	return models.PublicUser{ID: su.ID, Name: su.Name, ActiveRole: su.ActiveRole}, true
}

// HandleRequest handles POST /api/listings/{id}/request.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(r)
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

	l, err := h.Listings.Request(ctx, id, me.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("listing requested", zap.String("listing_id", id.Hex()), zap.String("user_id", me.ID.Hex()))
	h.Notifier.ListingRequested(l, me)
	httpx.JSON(w, http.StatusOK, h.decorateOne(ctx, me.ID, l))
}

type approveRequest struct {
	ReceiverID string `json:"receiver_id"`
}

// HandleApprove handles PUT /api/listings/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	var req approveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	receiver, err := httpx.ParseObjectID(req.ReceiverID, "receiver_id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Listings.Approve(ctx, id, me.ID, receiver)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("listing approved",
		zap.String("listing_id", id.Hex()),
		zap.String("receiver_id", receiver.Hex()))
	h.Notifier.ListingApproved(l, me)
	httpx.JSON(w, http.StatusOK, h.decorateOne(ctx, me.ID, l))
}

type fulfillRequest struct {
	PIN    string `json:"pin"`
	Rating int    `json:"rating"` // 0 means the owner did not rate
}

var errBadRating = apperr.Validation("rating must be between 1 and 5")

// HandleFulfill handles PUT /api/listings/{id}/fulfill. The status change
// and both reputation awards commit together; a wrong PIN changes nothing.
func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	var req fulfillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if req.Rating != 0 && !models.IsValidRating(req.Rating) {
		httpx.Error(w, r, h.Log, errBadRating)
		return
	}
	pin := strings.TrimSpace(req.PIN)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var l models.Listing
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		var err error
		if l, err = h.Listings.Fulfill(ctx, id, me.ID, pin); err != nil {
			return err
		}
		if err := h.Users.AwardOwner(ctx, l.OwnerID); err != nil {
			return err
		}
		if l.ReceiverID != nil {
			return h.Users.AwardReceiver(ctx, *l.ReceiverID, req.Rating)
		}
		return nil
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	receiver := primitive.NilObjectID
	if l.ReceiverID != nil {
		receiver = *l.ReceiverID
	}
	h.Log.Info("listing fulfilled",
		zap.String("listing_id", id.Hex()),
		zap.String("receiver_id", receiver.Hex()),
		zap.Int("rating", req.Rating))
	h.Notifier.ListingFulfilled(l)
	httpx.JSON(w, http.StatusOK, h.decorateOne(ctx, me.ID, l))
}
