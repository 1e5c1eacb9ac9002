// internal/app/features/ws/routes.go
package ws

import "github.com/go-chi/chi/v5"

// Routes mounts the socket endpoint (typically at "/ws").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeWS)
	return r
}
