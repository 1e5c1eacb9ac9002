// internal/app/features/listings/routes.go
package listings

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the listing endpoints (typically under "/api/listings").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeFeed)
	r.Post("/", h.HandleCreate)
	r.Get("/mine", h.ServeMine)
	r.Get("/requested", h.ServeRequested)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Post("/request", h.HandleRequest)
		r.Put("/approve", h.HandleApprove)
		r.Put("/fulfill", h.HandleFulfill)
	})
	return r
}
