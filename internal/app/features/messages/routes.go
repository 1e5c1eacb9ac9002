// internal/app/features/messages/routes.go
package messages

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the chat endpoints (typically under "/api/messages").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleSend)
	r.Get("/inbox", h.ServeInbox)
	r.Get("/unread", h.ServeUnread)
	r.Get("/thread/{listingID}/{counterpartID}", h.ServeThread)
	r.Put("/thread/{listingID}/{counterpartID}/read", h.HandleMarkRead)
	r.Put("/{id}", h.HandleEdit)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
