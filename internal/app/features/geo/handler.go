// internal/app/features/geo/handler.go
package geo

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/geocode"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Geocoder *geocode.Client
	Log      *zap.Logger
}

func NewHandler(geocoder *geocode.Client, logger *zap.Logger) *Handler {
	return &Handler{Geocoder: geocoder, Log: logger}
}

// ServeReverse handles GET /api/geo/reverse?lat&lng.
func (h *Handler) ServeReverse(w http.ResponseWriter, r *http.Request) {
	lat, err := httpx.QueryFloat(r, "lat")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	lng, err := httpx.QueryFloat(r, "lng")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if lat == nil || lng == nil {
		httpx.Error(w, r, h.Log, apperr.Validation("lat and lng are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	place, err := h.Geocoder.Reverse(ctx, *lat, *lng)
	if err != nil {
		h.upstream(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, place)
}

// ServeSearch handles GET /api/geo/search?q&limit.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(query.Get(r, "limit"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	places, err := h.Geocoder.Search(ctx, query.Get(r, "q"), limit)
	if err != nil {
		h.upstream(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, places)
}

// upstream reports client errors as-is and hides transport failures behind 502.
func (h *Handler) upstream(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) != apperr.KindInternal {
		httpx.Error(w, r, h.Log, err)
		return
	}
	h.Log.Warn("geocoding failed", zap.Error(err))
	httpx.Message(w, http.StatusBadGateway, "geocoding service unavailable")
}
