// internal/app/features/admin/users.go
package admin

import (
	"context"
	"net/http"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/txn"
	"go.uber.org/zap"
)

var (
	errSelfDemote = apperr.Forbidden("you cannot remove your own admin rights")
	errSelfDelete = apperr.BusinessRule("you cannot delete your own account here")
	errBadRole    = apperr.Validation(`role must be "donor" or "receiver"`)
)

type adminRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

// HandleSetAdmin handles PUT /api/admin/users/{id}/admin.
func (h *Handler) HandleSetAdmin(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	var req adminRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if req.IsAdmin == nil {
		httpx.Error(w, r, h.Log, apperr.Validation("is_admin is required"))
		return
	}
	if id == su.ID && !*req.IsAdmin {
		httpx.Error(w, r, h.Log, errSelfDemote)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.SetAdmin(ctx, id, *req.IsAdmin)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("admin rights changed",
		zap.String("user_id", id.Hex()),
		zap.String("actor_id", su.ID.Hex()),
		zap.Bool("is_admin", u.IsAdmin))
	h.AuditLog.AdminChanged(ctx, r, su.ID, id, u.IsAdmin)
	h.Notifier.RoleChanged(u)
	httpx.JSON(w, http.StatusOK, u)
}

type roleRequest struct {
	Role string `json:"role"`
}

// HandleSetRole handles PUT /api/admin/users/{id}/role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	role := normalize.Role(req.Role)
	if role == "" {
		httpx.Error(w, r, h.Log, errBadRole)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.SetActiveRole(ctx, id, role)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.ActiveRoleChanged(ctx, r, su.ID, id, role)
	h.Notifier.RoleChanged(u)
	httpx.JSON(w, http.StatusOK, u)
}

// HandleDeleteUser handles DELETE /api/admin/users/{id}. The user's listings
// are removed and their open requests withdrawn in the same transaction.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}
	id, err := httpx.ObjectIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if id == su.ID {
		httpx.Error(w, r, h.Log, errSelfDelete)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	var removed, withdrawn int64
	err = txn.Run(ctx, h.DB.Client(), h.Log, func(ctx context.Context) error {
		var err error
		if removed, err = h.Listings.DeleteByOwner(ctx, id); err != nil {
			return err
		}
		if withdrawn, err = h.Listings.ForgetRequester(ctx, id); err != nil {
			return err
		}
		return h.Users.Delete(ctx, id)
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("user deleted",
		zap.String("user_id", id.Hex()),
		zap.String("actor_id", su.ID.Hex()),
		zap.Int64("listings_removed", removed),
		zap.Int64("requests_withdrawn", withdrawn))
	h.AuditLog.UserDeleted(ctx, r, su.ID, id, u.Email, removed)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":          "user removed",
		"listings_removed": removed,
	})
}
