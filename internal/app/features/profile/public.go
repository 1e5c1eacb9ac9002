package profile

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/authz"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
)

// maxNearbyDonors caps one nearby-donor search.
const maxNearbyDonors = 50

// ServePublic handles GET /api/profile/{id}.
func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u.Public())
}

// nearbyDonor is a donor in a proximity search, without contact details.
type nearbyDonor struct {
	models.PublicUser
	Location *models.GeoPoint `json:"location,omitempty"`
}

// ServeNearbyDonors handles GET /api/profile/nearby-donors?lng&lat&radius&blood_group.
// Without lng/lat the caller's stored location is used.
func (h *Handler) ServeNearbyDonors(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	lng, err := httpx.QueryFloat(r, "lng")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	lat, err := httpx.QueryFloat(r, "lat")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	radius, err := httpx.QueryFloat(r, "radius")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	bg := query.Get(r, "blood_group")
	if bg != "" {
		if bg = normalize.BloodGroup(bg); bg == "" {
			httpx.Error(w, r, h.Log, apperr.Validation("invalid blood group"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var point models.GeoPoint
	switch {
	case lng != nil && lat != nil:
		point = models.NewGeoPoint(*lng, *lat)
		if !point.Valid() {
			httpx.Error(w, r, h.Log, apperr.Validation("invalid coordinates"))
			return
		}
	default:
		me, err := h.Users.GetByID(ctx, uid)
		if err != nil {
			httpx.Error(w, r, h.Log, err)
			return
		}
		if me.Location == nil {
			httpx.Error(w, r, h.Log, apperr.Validation("lng and lat are required when no location is saved"))
			return
		}
		point = *me.Location
	}

	km := float64(DefaultNearbyRadiusKm)
	if radius != nil && *radius > 0 {
		km = *radius
	}

	donors, err := h.Users.NearbyDonors(ctx, userstore.NearbyQuery{
		Point:      point,
		RadiusKm:   km,
		BloodGroup: bg,
		ExcludeID:  uid,
		Limit:      maxNearbyDonors,
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	out := make([]nearbyDonor, 0, len(donors))
	for _, d := range donors {
		out = append(out, nearbyDonor{PublicUser: d.Public(), Location: d.Location})
	}
	httpx.JSON(w, http.StatusOK, out)
}
