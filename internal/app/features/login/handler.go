// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"time"

	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auditlog"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/mailer"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/ratelimit"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves account registration, password login and password reset.
type Handler struct {
	Users    *userstore.Store
	Tokens   *auth.Tokens
	Mailer   *mailer.Mailer
	Jobs     *notify.Dispatcher // password reset emails are sent off the request
	AuditLog *auditlog.Logger
	Limiter  *ratelimit.AuthLimiter
	Log      *zap.Logger

	BaseURL     string        // reset links point at BaseURL + "/reset-password/<token>"
	SiteName    string
	ResetExpiry time.Duration // lifetime of a reset token

	now func() time.Time
}

// NewHandler constructs a login Handler.
func NewHandler(
	users *userstore.Store,
	tokens *auth.Tokens,
	mail *mailer.Mailer,
	jobs *notify.Dispatcher,
	audit *auditlog.Logger,
	limiter *ratelimit.AuthLimiter,
	baseURL string,
	resetExpiry time.Duration,
	logger *zap.Logger,
) *Handler {
	if resetExpiry <= 0 {
		resetExpiry = time.Hour
	}
	return &Handler{
		Users:       users,
		Tokens:      tokens,
		Mailer:      mail,
		Jobs:        jobs,
		AuditLog:    audit,
		Limiter:     limiter,
		Log:         logger,
		BaseURL:     baseURL,
		SiteName:    "HopeLink",
		ResetExpiry: resetExpiry,
		now:         time.Now,
	}
}

// authResponse is the user document plus a freshly issued token.
type authResponse struct {
	models.User
	Token string `json:"token"`
}

func (h *Handler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, u models.User) {
	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, status, authResponse{User: u, Token: token})
}

// allow applies the auth limiter and writes 429 when the attempt is blocked.
func (h *Handler) allow(ctx context.Context, w http.ResponseWriter, r *http.Request, email string) bool {
	if h.Limiter == nil {
		return true
	}
	ok, msg := h.Limiter.Check(r, email)
	if !ok {
		h.AuditLog.LoginRateLimited(ctx, r, email)
		httpx.Message(w, http.StatusTooManyRequests, msg)
	}
	return ok
}
