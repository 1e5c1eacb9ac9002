// internal/app/features/profile/routes.go
package profile

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the profile endpoints (typically under "/api/profile").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Put("/", h.HandleUpdate)
	r.Put("/role", h.HandleToggleRole)
	r.Put("/location", h.HandleLocation)
	r.Put("/push-token", h.HandlePushToken)
	r.Get("/nearby-donors", h.ServeNearbyDonors)
	r.Get("/{id}", h.ServePublic)
	return r
}
