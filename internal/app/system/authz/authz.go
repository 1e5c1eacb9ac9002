// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's id and active role. ok is false for
// anonymous requests, in which case the id is NilObjectID.
func UserCtx(r *http.Request) (userID primitive.ObjectID, activeRole string, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok || u.ID.IsZero() {
		return primitive.NilObjectID, "", false
	}
	return u.ID, u.ActiveRole, true
}

// UserID returns just the caller's id.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	id, _, ok := UserCtx(r)
	return id, ok
}

// IsAdmin reports whether the caller is an admin.
func IsAdmin(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.IsAdmin
}

