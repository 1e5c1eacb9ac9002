// internal/app/features/login/routes.go
package login

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the account endpoints (typically under "/api/auth").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/reset-password/{token}", h.HandleResetPassword)

	r.With(auth.RequireSignedIn).Get("/me", h.ServeMe)

	return r
}
