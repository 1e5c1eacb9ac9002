// internal/app/features/events/routes.go
package events

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the community events endpoints under "/api/events".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeUpcoming)
	r.With(auth.RequireAdmin).Post("/", h.HandleCreate)
	return r
}
