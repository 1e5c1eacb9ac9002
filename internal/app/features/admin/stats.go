// internal/app/features/admin/stats.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	metricsstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/metrics"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/paging"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
)

// ServeStats handles GET /api/admin/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	httpx.JSON(w, http.StatusOK, metricsstore.FetchStats(ctx, h.DB, time.Now().UTC()))
}

type usersResponse struct {
	Users []models.User `json:"users"`
	paging.Result[models.User]
}

// ServeUsers handles GET /api/admin/users?q&page&limit.
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, userstore.ListFilter{
		Query: normalize.QueryParam(query.Get(r, "q")),
		Skip:  p.Skip64(),
		Limit: p.Limit64(),
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	res := paging.NewResult(users, p, total)
	httpx.JSON(w, http.StatusOK, usersResponse{Users: res.Items, Result: res})
}

type listingsResponse struct {
	Listings []models.Listing `json:"listings"`
	paging.Result[models.Listing]
}

// ServeListings handles GET /api/admin/listings?status&page&limit. PINs are
// never shown to moderators.
func (h *Handler) ServeListings(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)
	status := query.Get(r, "status")
	if status == "all" {
		status = ""
	}
	if status != "" && !models.IsValidStatus(status) {
		httpx.Error(w, r, h.Log, apperr.Validation("invalid status"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ls, total, err := h.Listings.List(ctx, listingstore.ListFilter{
		Status: status,
		Skip:   p.Skip64(),
		Limit:  p.Limit64(),
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	for i := range ls {
		ls[i].PIN = ""
	}
	res := paging.NewResult(ls, p, total)
	httpx.JSON(w, http.StatusOK, listingsResponse{Listings: res.Items, Result: res})
}
