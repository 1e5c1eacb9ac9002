// Package auth authenticates API requests with Bearer JWTs and exposes the
// signed-in user through the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SessionUser is the authenticated caller, reloaded from the directory on
// every request so role and admin changes apply immediately.
type SessionUser struct {
	ID         primitive.ObjectID
	Name       string
	Email      string
	ActiveRole string
	IsAdmin    bool
}

// UserLoader fetches the account behind a token.
type UserLoader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type ctxKey struct{}

// CurrentUser returns the user attached by Middleware.Authenticate.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	return FromContext(r.Context())
}

// FromContext is CurrentUser for code that only has a context.
func FromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// WithTestUser attaches u to r. Used by handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

// FromUser builds the session view of a stored user.
func FromUser(u models.User) *SessionUser {
	return &SessionUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		ActiveRole: u.ActiveRole,
		IsAdmin:    u.IsAdmin,
	}
}

// Middleware resolves Bearer tokens into users.
type Middleware struct {
	Tokens *Tokens
	Users  UserLoader
	Log    *zap.Logger
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(tokens *Tokens, users UserLoader, logger *zap.Logger) *Middleware {
	return &Middleware{Tokens: tokens, Users: users, Log: logger}
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Resolve verifies raw and loads its user.
func (m *Middleware) Resolve(ctx context.Context, raw string) (*SessionUser, error) {
	id, err := m.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := m.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromUser(u), nil
}

// Authenticate attaches the caller to the context when a valid token is
// present. Requests without one continue anonymously; RequireSignedIn
// decides whether that is acceptable.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := m.Resolve(r.Context(), raw)
		if err != nil {
			m.Log.Debug("bearer token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			httpx.Message(w, http.StatusUnauthorized, "not authorized, token failed")
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn answers 401 unless Authenticate attached a user.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 unless the caller is an admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
			return
		}
		if !u.IsAdmin {
			httpx.Message(w, http.StatusUnauthorized, "not authorized as an admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}
