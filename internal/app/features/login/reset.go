package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/mailer"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const forgotReply = "If that email is registered, a reset link has been sent."

// HandleForgotPassword handles POST /api/auth/forgot-password. The reply is
// the same whether or not the email exists.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
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
		httpx.Message(w, http.StatusOK, forgotReply)
		return
	}
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if err := h.Users.SetResetToken(ctx, u.ID, hash, h.now().Add(h.ResetExpiry)); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	if h.Mailer.Enabled() {
		email := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
			SiteName:  h.SiteName,
			ResetLink: h.BaseURL + "/reset-password/" + token,
			ExpiresIn: formatExpiry(h.ResetExpiry),
		})
		email.To = u.Email
		h.Jobs.Enqueue(notify.Job{Kind: "password_reset_email", Run: func(context.Context) error {
			return h.Mailer.Send(email)
		}})
	} else {
		h.Log.Warn("password reset requested but mail is not configured", zap.String("user_id", u.ID.Hex()))
	}

	h.AuditLog.PasswordResetSent(ctx, r, u.ID)
	httpx.Message(w, http.StatusOK, forgotReply)
}

// HandleResetPassword handles POST /api/auth/reset-password/{token}.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		httpx.Error(w, r, h.Log, errShortPassword)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	token := chi.URLParam(r, "token")
	u, err := h.Users.ResetPassword(ctx, auth.HashResetToken(token), hash, h.now())
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.PasswordResetDone(ctx, r, u.ID)
	h.respondWithToken(w, r, http.StatusOK, u)
}

// formatExpiry renders d as "45 minutes" or "2 hours".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	switch {
	case minutes == 1:
		return "1 minute"
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 120:
		return "1 hour"
	default:
		return fmt.Sprintf("%d hours", minutes/60)
	}
}
