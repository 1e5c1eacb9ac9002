// internal/app/features/messages/send.go
package messages

import (
	"context"
	"net/http"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

type sendRequest struct {
	ReceiverID string `json:"receiver_id"`
	ListingID  string `json:"listing_id"`
	Content    string `json:"content"`
}

// HandleSend handles POST /api/messages.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	var req sendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	receiver, err := httpx.ParseObjectID(req.ReceiverID, "receiver_id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	listing, err := httpx.ParseObjectID(req.ListingID, "listing_id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Listings.GetByID(ctx, listing); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if _, err := h.Users.GetByID(ctx, receiver); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	m, err := h.Messages.Create(ctx, models.Message{
		SenderID:   su.ID,
		ReceiverID: receiver,
		ListingID:  listing,
		Content:    htmlsanitize.PlainTextMax(req.Content, maxContentLen),
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Debug("message sent",
		zap.String("message_id", m.ID.Hex()),
		zap.String("listing_id", listing.Hex()))
	h.Notifier.NewMessage(m, models.PublicUser{ID: su.ID, Name: su.Name, ActiveRole: su.ActiveRole})
	httpx.JSON(w, http.StatusCreated, m)
}

type editRequest struct {
	Content string `json:"content"`
}

// HandleEdit handles PUT /api/messages/{id}. Only the sender may edit.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
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
	var req editRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Messages.Edit(ctx, id, su.ID, htmlsanitize.PlainTextMax(req.Content, maxContentLen))
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	h.Notifier.MessageEdited(m)
	httpx.JSON(w, http.StatusOK, m)
}

// HandleDelete handles DELETE /api/messages/{id}. Only the sender may delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	m, err := h.Messages.Delete(ctx, id, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	h.Notifier.MessageDeleted(m)
	httpx.Message(w, http.StatusOK, "message deleted")
}
