// internal/app/features/geo/routes.go
package geo

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the geocoding proxy under "/api/geo".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/reverse", h.ServeReverse)
	r.Get("/search", h.ServeSearch)
	return r
}
