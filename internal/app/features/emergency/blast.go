// internal/app/features/emergency/blast.go
package emergency

import (
	"context"
	"net/http"

	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

const maxMessageLen = 500

type blastRequest struct {
	Message    string   `json:"message"`
	BloodGroup string   `json:"blood_group"`
	Lng        *float64 `json:"lng"`
	Lat        *float64 `json:"lat"`
}

// HandleSend handles POST /api/emergency/blast. Without coordinates the
// caller's saved location is used.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	var req blastRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	msg := htmlsanitize.PlainTextMax(req.Message, maxMessageLen)
	if msg == "" {
		httpx.Error(w, r, h.Log, apperr.Validation("message is required"))
		return
	}
	var bg string
	if req.BloodGroup != "" {
		if bg = normalize.BloodGroup(req.BloodGroup); bg == "" {
			httpx.Error(w, r, h.Log, apperr.Validation("invalid blood group"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var point models.GeoPoint
	if req.Lng != nil && req.Lat != nil {
		point = models.NewGeoPoint(*req.Lng, *req.Lat)
	} else {
		u, err := h.Users.GetByID(ctx, su.ID)
		if err != nil {
			httpx.Error(w, r, h.Log, err)
			return
		}
		if u.Location == nil {
			httpx.Error(w, r, h.Log, apperr.Validation("lng and lat are required"))
			return
		}
		point = *u.Location
	}

	b, err := h.Blasts.Create(ctx, models.EmergencyBlast{
		RequesterID: su.ID,
		Message:     msg,
		BloodGroup:  bg,
		Location:    point,
		RadiusKm:    h.RadiusKm,
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	// A failed recipient lookup still answers with the stored blast.
	var recipients []models.User
	donors, err := h.Users.NearbyDonors(ctx, userstore.NearbyQuery{
		Point:      point,
		RadiusKm:   h.RadiusKm,
		BloodGroup: bg,
		ExcludeID:  su.ID,
	})
	if err != nil {
		h.Log.Warn("blast recipient lookup failed", zap.Error(err), zap.String("blast_id", b.ID.Hex()))
	} else {
		recipients = userstore.WithDeviceTokens(donors)
		b.NotifiedCount = len(recipients)
		if err := h.Blasts.SetNotified(ctx, b.ID, b.NotifiedCount); err != nil {
			h.Log.Warn("record blast reach failed", zap.Error(err), zap.String("blast_id", b.ID.Hex()))
		}
	}

	h.Log.Info("emergency blast sent",
		zap.String("blast_id", b.ID.Hex()),
		zap.String("user_id", su.ID.Hex()),
		zap.String("blood_group", bg),
		zap.Int("notified", b.NotifiedCount))
	h.Notifier.EmergencyBlast(b, recipients)

	httpx.JSON(w, http.StatusCreated, b)
}

// HandleRespond handles POST /api/emergency/blasts/{id}/respond. Responding
// twice returns the blast unchanged and does not notify again.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
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

	b, added, err := h.Blasts.Respond(ctx, id, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if added {
		h.Log.Info("blast response", zap.String("blast_id", id.Hex()), zap.String("donor_id", su.ID.Hex()))
		h.Notifier.BlastResponse(b, models.PublicUser{ID: su.ID, Name: su.Name, ActiveRole: su.ActiveRole})
	}
	httpx.JSON(w, http.StatusOK, b)
}

// ServeMine handles GET /api/emergency/blasts/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	blasts, err := h.Blasts.ByRequester(ctx, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, blasts)
}

// ServeGet handles GET /api/emergency/blasts/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	b, err := h.Blasts.GetByID(ctx, id)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}
