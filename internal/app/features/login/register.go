package login

import (
	"context"
	"net/http"
	"strings"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/inputval"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

type registerRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Role       string   `json:"role"`
	BloodGroup string   `json:"blood_group"`
	Phone      string   `json:"phone"`
	Lng        *float64 `json:"lng"`
	Lat        *float64 `json:"lat"`
}

var (
	errMissingFields = apperr.Validation("name, email and password are required")
	errShortPassword = apperr.Validation("password must be at least 6 characters")
	errBadEmail      = apperr.Validation("invalid email address")
)

func (req registerRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" || normalize.Email(req.Email) == "" || req.Password == "" {
		return errMissingFields
	}
	if !inputval.IsValidEmail(req.Email) {
		return errBadEmail
	}
	if len(req.Password) < auth.MinPasswordLength {
		return errShortPassword
	}
	return nil
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	u := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		ActiveRole:   normalize.Role(req.Role),
		BloodGroup:   normalize.BloodGroup(req.BloodGroup),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if req.BloodGroup != "" && u.BloodGroup == "" {
		httpx.Error(w, r, h.Log, apperr.Validation("invalid blood group"))
		return
	}
	if req.Lng != nil && req.Lat != nil {
		p := models.NewGeoPoint(*req.Lng, *req.Lat)
		u.Location = &p
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err = h.Users.Create(ctx, u)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	h.AuditLog.Registered(ctx, r, u.ID, u.Email)
	h.respondWithToken(w, r, http.StatusCreated, u)
}
