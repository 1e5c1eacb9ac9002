// internal/app/features/events/handler.go
package events

import (
	"context"
	"net/http"
	"strings"
	"time"

	eventstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/events"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/geocode"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/paging"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

const (
	maxTitleLen       = 120
	maxDescriptionLen = 2000
	maxAddressLen     = 300
)

// Handler serves community events. Geocoder may be nil, in which case an
// address without coordinates is stored as text only.
type Handler struct {
	Events   *eventstore.Store
	Geocoder *geocode.Client
	Log      *zap.Logger
}

func NewHandler(events *eventstore.Store, geocoder *geocode.Client, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Geocoder: geocoder, Log: logger}
}

type createRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"` // RFC 3339 or YYYY-MM-DDTHH:MM (UTC)
	Address     string   `json:"address"`
	Lng         *float64 `json:"lng"`
	Lat         *float64 `json:"lat"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("date is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("invalid date")
}

// HandleCreate handles POST /api/events (admins only).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if (req.Lng == nil) != (req.Lat == nil) {
		httpx.Error(w, r, h.Log, apperr.Validation("lng and lat must be given together"))
		return
	}

	e := models.Event{
		Title:       htmlsanitize.PlainTextMax(req.Title, maxTitleLen),
		Description: htmlsanitize.PlainTextMax(req.Description, maxDescriptionLen),
		Date:        date,
		Address:     htmlsanitize.PlainTextMax(req.Address, maxAddressLen),
		CreatedBy:   su.ID,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	switch {
	case req.Lng != nil:
		p := models.NewGeoPoint(*req.Lng, *req.Lat)
		e.Location = &p
	case e.Address != "" && h.Geocoder != nil:
		places, err := h.Geocoder.Search(ctx, e.Address, 1)
		if err != nil || len(places) == 0 {
			h.Log.Warn("event address not geocoded", zap.String("address", e.Address), zap.Error(err))
			break
		}
		p := models.NewGeoPoint(places[0].Lng, places[0].Lat)
		e.Location = &p
	}

	created, err := h.Events.Create(ctx, e)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("event created", zap.String("event_id", created.ID.Hex()), zap.String("actor_id", su.ID.Hex()))
	httpx.JSON(w, http.StatusCreated, created)
}

// ServeUpcoming handles GET /api/events?limit.
func (h *Handler) ServeUpcoming(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Events.Upcoming(ctx, time.Now().UTC(), p.Limit64())
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
