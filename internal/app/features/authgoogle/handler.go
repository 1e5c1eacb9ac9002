// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/gorilla/securecookie"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auditlog"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateName   = "hopelink_oauth_state"
	stateMaxAge = 10 * time.Minute

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler handles Google OAuth sign-in. The OAuth state is a signed,
// time-limited value, so nothing is stored between the two legs.
type Handler struct {
	Users    *userstore.Store
	Tokens   *auth.Tokens
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://api.hopelink.org/api/auth/google/callback"

	// AppURL is where the callback sends browsers, with the token appended as
	// a fragment. When empty the callback answers with JSON.
	AppURL string

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	state *securecookie.SecureCookie
}

// NewHandler creates a Google OAuth handler. stateKey signs the OAuth state.
func NewHandler(
	users *userstore.Store,
	tokens *auth.Tokens,
	audit *auditlog.Logger,
	clientID, clientSecret, redirectURL, appURL string,
	stateKey []byte,
	logger *zap.Logger,
) *Handler {
	sc := securecookie.New(stateKey, nil)
	sc.MaxAge(int(stateMaxAge / time.Second))
	return &Handler{
		Users:        users,
		Tokens:       tokens,
		AuditLog:     audit,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AppURL:       strings.TrimRight(appURL, "/"),
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
		state:        sc,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

type statePayload struct {
	Nonce    string
	Redirect bool // send the browser to AppURL instead of answering JSON
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google                                                         |
| Returns Google's consent URL; ?redirect=1 redirects the browser there.       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		httpx.Message(w, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}

	nonce, err := generateNonce()
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	redirect := query.Get(r, "redirect") == "1" && h.AppURL != ""
	state, err := h.state.Encode(stateName, statePayload{Nonce: nonce, Redirect: redirect})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	consent := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline)
	if redirect {
		http.Redirect(w, r, consent, http.StatusTemporaryRedirect)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": consent})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google/callback                                                |
| Exchanges the code, upserts the user by email and issues a token.            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		httpx.Message(w, http.StatusUnauthorized, "google sign-in was cancelled")
		return
	}

	var st statePayload
	if err := h.state.Decode(stateName, query.Get(r, "state"), &st); err != nil {
		h.Log.Warn("invalid or expired OAuth state", zap.Error(err))
		httpx.Message(w, http.StatusBadRequest, "invalid or expired sign-in attempt")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		httpx.Message(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		httpx.Message(w, http.StatusUnauthorized, "google sign-in failed")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		httpx.Message(w, http.StatusUnauthorized, "google sign-in failed")
		return
	}
	if info.Email == "" || !info.EmailVerified {
		httpx.Message(w, http.StatusUnauthorized, "google account has no verified email")
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, created, err := h.Users.UpsertGoogle(dbCtx, userstore.GoogleProfile{
		GoogleID:  info.ID,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	})
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if created {
		h.AuditLog.Registered(dbCtx, r, u.ID, u.Email)
	}
	h.AuditLog.LoginSuccess(dbCtx, r, u.ID, "google")

	h.Log.Info("user logged in via Google OAuth",
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("created", created))

	h.finish(w, r, u, st.Redirect)
}

type authResponse struct {
	models.User
	Token string `json:"token"`
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, u models.User, redirect bool) {
	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	if redirect && h.AppURL != "" {
		frag := url.Values{"token": {token}}
		http.Redirect(w, r, h.AppURL+"/oauth-success#"+frag.Encode(), http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, authResponse{User: u, Token: token})
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// fetchUserInfo retrieves user information from the userinfo endpoint.
func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
