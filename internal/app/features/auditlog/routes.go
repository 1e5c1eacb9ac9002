// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
)

// Routes mounts the audit log (typically under "/api/admin/audit").
// Access is restricted to admins.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireAdmin)

	r.Get("/", h.ServeList)
	r.Get("/categories", h.ServeCategories)
	return r
}
