// internal/app/features/emergency/routes.go
package emergency

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the SOS endpoints (typically under "/api/emergency").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/blast", h.HandleSend)
	r.Get("/blasts/mine", h.ServeMine)
	r.Get("/blasts/{id}", h.ServeGet)
	r.Post("/blasts/{id}/respond", h.HandleRespond)
	r.Put("/listings/{id}/accept", h.HandleAccept)
	return r
}
