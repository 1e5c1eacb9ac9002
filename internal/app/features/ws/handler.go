// internal/app/features/ws/handler.go
package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/realtime"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler upgrades authenticated requests to realtime sockets.
type Handler struct {
	Hub  *realtime.Hub
	Auth *auth.Middleware
	Log  *zap.Logger

	upgrader websocket.Upgrader
}

// NewHandler builds the socket handler. allowedOrigins lists browser origins
// that may connect; empty or "*" accepts any origin, since the bearer token
// rather than cookies authenticates the socket.
func NewHandler(hub *realtime.Hub, mw *auth.Middleware, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{Hub: hub, Auth: mw, Log: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := map[string]bool{}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// token reads ?token= first since browsers cannot set headers on a
// websocket handshake.
func token(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	return auth.BearerToken(r)
}

// ServeWS handles GET /ws?token=<jwt>.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	raw := token(r)
	if raw == "" {
		httpx.Message(w, http.StatusUnauthorized, "not authorized, no token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	u, err := h.Auth.Resolve(ctx, raw)
	cancel()
	if err != nil {
		h.Log.Debug("socket token rejected", zap.Error(err))
		httpx.Message(w, http.StatusUnauthorized, "not authorized, token failed")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.Log.Debug("socket upgrade failed", zap.Error(err))
		return
	}

	c := realtime.NewClient(h.Hub, conn, u.ID)
	h.Log.Debug("socket connected", zap.String("user_id", u.ID.Hex()), zap.String("client_id", c.ID))
	c.Serve()
}
