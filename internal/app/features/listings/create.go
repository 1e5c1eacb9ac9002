// internal/app/features/listings/create.go
package listings

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/authz"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/imagestore"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

const (
	maxTitleLen       = 120
	maxDescriptionLen = 2000
	maxShortFieldLen  = 200
)

// listingRequest is the body of create and update, from JSON or a
// multipart form. Absent fields stay nil.
type listingRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Quantity    *string  `json:"quantity"`
	ListingType *string  `json:"listing_type"`
	Category    *string  `json:"category"`
	BloodGroup  *string  `json:"blood_group"`
	Address     *string  `json:"address"`
	ImageURL    *string  `json:"image_url"`
	IsEmergency *bool    `json:"is_emergency"`
	Lng         *float64 `json:"lng"`
	Lat         *float64 `json:"lat"`
}

var errBadNumber = apperr.Validation("lng, lat and is_emergency must be numbers and booleans")

func formString(r *http.Request, name string) *string {
	if _, ok := r.MultipartForm.Value[name]; !ok {
		return nil
	}
	v := r.FormValue(name)
	return &v
}

// fromForm reads a listingRequest from a parsed multipart form.
func fromForm(r *http.Request) (listingRequest, error) {
	req := listingRequest{
		Title:       formString(r, "title"),
		Description: formString(r, "description"),
		Quantity:    formString(r, "quantity"),
		ListingType: formString(r, "listing_type"),
		Category:    formString(r, "category"),
		BloodGroup:  formString(r, "blood_group"),
		Address:     formString(r, "address"),
		ImageURL:    formString(r, "image_url"),
	}
	for name, dst := range map[string]**float64{"lng": &req.Lng, "lat": &req.Lat} {
		if s := formString(r, name); s != nil && strings.TrimSpace(*s) != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
			if err != nil {
				return req, errBadNumber
			}
			*dst = &f
		}
	}
	if s := formString(r, "is_emergency"); s != nil && *s != "" {
		b, err := strconv.ParseBool(*s)
		if err != nil {
			return req, errBadNumber
		}
		req.IsEmergency = &b
	}
	return req, nil
}

// readRequest decodes JSON or a multipart form and stores an uploaded
// "image" file, whose URL replaces image_url.
func (h *Handler) readRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (listingRequest, error) {
	if !httpx.IsMultipart(r) {
		var req listingRequest
		err := httpx.DecodeJSON(r, &req)
		return req, err
	}
	if err := imagestore.ParseForm(w, r); err != nil {
		return listingRequest{}, err
	}
	req, err := fromForm(r)
	if err != nil {
		return req, err
	}
	url, err := imagestore.PutForm(ctx, h.Images, r, "image")
	if err != nil {
		return req, err
	}
	if url != "" {
		req.ImageURL = &url
	}
	return req, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func clean(p *string, max int) *string {
	if p == nil {
		return nil
	}
	v := htmlsanitize.PlainTextMax(*p, max)
	return &v
}

// HandleCreate handles POST /api/listings.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	req, err := h.readRequest(ctx, w, r)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if req.Lng == nil || req.Lat == nil {
		httpx.Error(w, r, h.Log, apperr.Validation("lng and lat are required"))
		return
	}

	l := models.Listing{
		OwnerID:     uid,
		Title:       str(clean(req.Title, maxTitleLen)),
		Description: str(clean(req.Description, maxDescriptionLen)),
		Quantity:    str(clean(req.Quantity, maxShortFieldLen)),
		Address:     str(clean(req.Address, maxShortFieldLen)),
		ImageURL:    strings.TrimSpace(str(req.ImageURL)),
		BloodGroup:  str(req.BloodGroup),
		Location:    models.NewGeoPoint(*req.Lng, *req.Lat),
		IsEmergency: req.IsEmergency != nil && *req.IsEmergency,
	}
	if req.ListingType != nil {
		if l.ListingType = normalize.ListingType(*req.ListingType); l.ListingType == "" {
			httpx.Error(w, r, h.Log, apperr.Validation(`listing_type must be "donation" or "request"`))
			return
		}
	}
	l.Category = normalize.Category(str(req.Category))

	l, err = h.Listings.Create(ctx, l)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("listing created",
		zap.String("listing_id", l.ID.Hex()),
		zap.String("user_id", uid.Hex()),
		zap.Bool("emergency", l.IsEmergency))

	if l.IsEmergency {
		h.Notifier.EmergencyListing(l)
	}
	httpx.JSON(w, http.StatusCreated, h.decorateOne(ctx, uid, l))
}

// HandleUpdate handles PUT /api/listings/{id}. Only the owner may edit, and
// only while the listing is active.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	req, err := h.readRequest(ctx, w, r)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	upd := listingstore.Update{
		Title:       clean(req.Title, maxTitleLen),
		Description: clean(req.Description, maxDescriptionLen),
		Quantity:    clean(req.Quantity, maxShortFieldLen),
		Address:     clean(req.Address, maxShortFieldLen),
		BloodGroup:  req.BloodGroup,
		ImageURL:    req.ImageURL,
	}
	if req.Category != nil {
		c := normalize.Category(*req.Category)
		upd.Category = &c
	}
	if req.Lng != nil && req.Lat != nil {
		p := models.NewGeoPoint(*req.Lng, *req.Lat)
		upd.Location = &p
	}

	l, err := h.Listings.Update(ctx, id, uid, upd)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.decorateOne(ctx, uid, l))
}

// HandleDelete handles DELETE /api/listings/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
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

	if err := h.Listings.Delete(ctx, id, uid); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("listing deleted", zap.String("listing_id", id.Hex()), zap.String("user_id", uid.Hex()))
	httpx.Message(w, http.StatusOK, "listing removed")
}
