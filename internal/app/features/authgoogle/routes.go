// internal/app/features/authgoogle/routes.go
package authgoogle

import "github.com/go-chi/chi/v5"

// Routes returns the router for Google OAuth endpoints.
// These routes are public (no authentication required).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// GET /api/auth/google - consent URL
	r.Get("/", h.ServeLogin)

	// GET /api/auth/google/callback - code exchange
	r.Get("/callback", h.ServeCallback)

	return r
}
