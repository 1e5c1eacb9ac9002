package login

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
)

var errBadCredentials = apperr.Unauthorized("invalid email or password")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if !h.allow(ctx, w, r, req.Email) {
		return
	}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailed(ctx, r, nil, req.Email, "unknown email")
		httpx.Error(w, r, h.Log, errBadCredentials)
		return
	}
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	// Google-only accounts have no password hash and always fail here.
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.AuditLog.LoginFailed(ctx, r, &u.ID, u.Email, "bad password")
		httpx.Error(w, r, h.Log, errBadCredentials)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, "password")
	h.respondWithToken(w, r, http.StatusOK, u)
}

// ServeMe handles GET /api/auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, su.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}
