package listings

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/authz"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/paging"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// feedResponse is {listings, page, limit, total, hasMore}.
type feedResponse struct {
	Listings []listingView `json:"listings"`
	paging.Result[listingView]
}

// feedQuery reads the feed filters from the query string. Unknown category,
// type or blood group values are rejected rather than ignored.
func feedQuery(r *http.Request, p paging.Page) (listingstore.FeedQuery, error) {
	q := listingstore.FeedQuery{Skip: p.Skip64(), Limit: p.Limit64()}

	lng, err := httpx.QueryFloat(r, "lng")
	if err != nil {
		return q, err
	}
	lat, err := httpx.QueryFloat(r, "lat")
	if err != nil {
		return q, err
	}
	radius, err := httpx.QueryFloat(r, "radius")
	if err != nil {
		return q, err
	}
	if lng != nil && lat != nil {
		pt := models.NewGeoPoint(*lng, *lat)
		if !pt.Valid() {
			return q, apperr.Validation("invalid coordinates")
		}
		q.Near = &pt
		if radius != nil && *radius > 0 {
			q.RadiusKm = *radius
		}
	}

	if v := query.Get(r, "category"); v != "" && v != "all" {
		if q.Category = normalize.Category(v); q.Category == "" {
			return q, apperr.Validation("invalid category")
		}
	}
	if v := query.Get(r, "type"); v != "" && v != "all" {
		if q.ListingType = normalize.ListingType(v); q.ListingType == "" {
			return q, apperr.Validation("invalid type")
		}
	}
	if v := query.Get(r, "blood_group"); v != "" {
		if q.BloodGroup = normalize.BloodGroup(v); q.BloodGroup == "" {
			return q, apperr.Validation("invalid blood group")
		}
	}
	return q, nil
}

// ServeFeed handles GET /api/listings?lng&lat&radius&category&type&blood_group&page&limit.
// With coordinates the page is ordered nearest first; otherwise newest first.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	p := paging.Parse(r)
	q, err := feedQuery(r, p)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ls, total, err := h.Listings.Feed(ctx, q)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	res := paging.NewResult(h.decorate(ctx, uid, ls), p, total)
	httpx.JSON(w, http.StatusOK, feedResponse{Listings: res.Items, Result: res})
}

// ServeGet handles GET /api/listings/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.decorateOne(ctx, uid, l))
}

// ServeMine handles GET /api/listings/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Listings.Mine)
}

// ServeRequested handles GET /api/listings/requested: listings the caller
// asked for or was approved to receive.
func (h *Handler) ServeRequested(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Listings.Requested)
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, load func(context.Context, primitive.ObjectID) ([]models.Listing, error)) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ls, err := load(ctx, uid)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.decorate(ctx, uid, ls))
}
