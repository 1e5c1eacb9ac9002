// internal/app/features/admin/routes.go
package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the admin API (typically under "/api/admin").
// Every route requires an admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireAdmin)

	r.Get("/stats", h.ServeStats)
	r.Get("/users", h.ServeUsers)
	r.Put("/users/{id}/admin", h.HandleSetAdmin)
	r.Put("/users/{id}/role", h.HandleSetRole)
	r.Delete("/users/{id}", h.HandleDeleteUser)
	r.Get("/listings", h.ServeListings)
	r.Delete("/listings/{id}", h.HandleDeleteListing)
	r.Post("/broadcast", h.HandleBroadcast)
	return r
}
