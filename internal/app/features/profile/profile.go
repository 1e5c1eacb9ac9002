// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"net/http"

	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/authz"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/imagestore"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

type profileRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	BloodGroup *string `json:"blood_group"`
	AvatarURL  *string `json:"avatar_url"`
}

func (p profileRequest) update() userstore.ProfileUpdate {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := htmlsanitize.PlainTextMax(*s, 200)
		return &v
	}
	return userstore.ProfileUpdate{
		Name:       clean(p.Name),
		Phone:      clean(p.Phone),
		Address:    clean(p.Address),
		BloodGroup: p.BloodGroup,
		AvatarURL:  p.AvatarURL,
	}
}

// formValue returns a pointer to a submitted form field, nil when absent.
func formValue(r *http.Request, name string) *string {
	if _, ok := r.MultipartForm.Value[name]; !ok {
		return nil
	}
	v := r.FormValue(name)
	return &v
}

// HandleUpdate handles PUT /api/profile. It accepts JSON, or a multipart
// form whose "avatar" file replaces the avatar.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var req profileRequest
	if httpx.IsMultipart(r) {
		if err := imagestore.ParseForm(w, r); err != nil {
			httpx.Error(w, r, h.Log, err)
			return
		}
		req = profileRequest{
			Name:       formValue(r, "name"),
			Phone:      formValue(r, "phone"),
			Address:    formValue(r, "address"),
			BloodGroup: formValue(r, "blood_group"),
		}
		url, err := imagestore.PutForm(ctx, h.Images, r, "avatar")
		if err != nil {
			httpx.Error(w, r, h.Log, err)
			return
		}
		if url != "" {
			req.AvatarURL = &url
		}
	} else if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	u, err := h.Users.UpdateProfile(ctx, uid, req.update())
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

// HandleToggleRole handles PUT /api/profile/role.
func (h *Handler) HandleToggleRole(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.ToggleRole(ctx, uid)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("active role toggled", zap.String("user_id", uid.Hex()), zap.String("active_role", u.ActiveRole))
	h.Notifier.RoleChanged(u)
	httpx.JSON(w, http.StatusOK, u)
}

type locationRequest struct {
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

var errLocationRequired = apperr.Validation("lng and lat are required")

// HandleLocation handles PUT /api/profile/location.
func (h *Handler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	var req locationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if req.Lng == nil || req.Lat == nil {
		httpx.Error(w, r, h.Log, errLocationRequired)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.UpdateLocation(ctx, uid, models.NewGeoPoint(*req.Lng, *req.Lat))
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

type pushTokenRequest struct {
	Token string `json:"token"`
	Kind  string `json:"kind"` // "expo" (default) or "web"
}

// HandlePushToken handles PUT /api/profile/push-token. An empty token
// unregisters the device.
func (h *Handler) HandlePushToken(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	var req pushTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetPushToken(ctx, uid, req.Kind, req.Token); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.Message(w, http.StatusOK, "push token saved")
}
