// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	adminfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/admin"
	auditlogfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/auditlog"
	authgooglefeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/authgoogle"
	emergencyfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/emergency"
	eventsfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/events"
	geofeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/geo"
	healthfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/health"
	listingsfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/listings"
	loginfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/login"
	messagesfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/messages"
	profilefeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/profile"
	wsfeature "github.com/jaga42-ui/hopelink-sub000/internal/app/features/ws"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed; every collaborator comes from deps.App.
//
// Layout:
//   - /health, /metrics
//   - /api/auth (email/password, reset) and /api/auth/google
//   - /api/profile, /api/listings, /api/emergency, /api/messages
//   - /api/events, /api/geo
//   - /api/admin and /api/admin/audit
//   - /ws realtime socket
//   - /files/* when images are stored locally
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := deps.App
	if s == nil || s.Auth == nil {
		return nil, errors.New("build handler: Startup has not run")
	}
	db := deps.MongoDatabase

	r := chi.NewRouter()
	r.Use(cors.Handler(corsOptions(appCfg.CORSOrigins)))
	r.Use(s.Metrics.Middleware)

	// Global auth middleware: resolves a Bearer token into the caller so
	// handlers can use auth.CurrentUser(r).
	r.Use(s.Auth.Authenticate)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.NATS, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", s.Metrics.Handler())

	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(s.Users, s.Tokens, s.Mailer, s.Dispatcher, s.AuditLog, s.Limiter,
		appCfg.BaseURL, appCfg.PasswordResetExpiry, logger)
	stateKey := sha256.Sum256([]byte("oauth-state:" + appCfg.JWTSecret))
	googleHandler := authgooglefeature.NewHandler(s.Users, s.Tokens, s.AuditLog,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.GoogleRedirectURL, appCfg.BaseURL,
		stateKey[:], logger)
	authRouter := loginfeature.Routes(loginHandler)
	authRouter.Mount("/google", authgooglefeature.Routes(googleHandler))
	r.Mount("/api/auth", authRouter)

	// Users, listings and the workflows around them
	profileHandler := profilefeature.NewHandler(s.Users, s.Images, s.Notifier, logger)
	r.Mount("/api/profile", profilefeature.Routes(profileHandler))

	listingsHandler := listingsfeature.NewHandler(deps.MongoClient, s.Listings, s.Users, s.Images, s.Notifier, logger)
	r.Mount("/api/listings", listingsfeature.Routes(listingsHandler))

	emergencyHandler := emergencyfeature.NewHandler(s.Blasts, s.Listings, s.Users, s.Notifier, appCfg.EmergencyRadiusKm, logger)
	r.Mount("/api/emergency", emergencyfeature.Routes(emergencyHandler))

	messagesHandler := messagesfeature.NewHandler(s.Messages, s.Listings, s.Users, s.Notifier, logger)
	r.Mount("/api/messages", messagesfeature.Routes(messagesHandler))

	// Community events and geocoding
	eventsHandler := eventsfeature.NewHandler(s.Events, s.Geocoder, logger)
	r.Mount("/api/events", eventsfeature.Routes(eventsHandler))

	geoHandler := geofeature.NewHandler(s.Geocoder, logger)
	geoLimit := ratelimit.Middleware(s.GeoLimiter, ratelimit.ClientIP, "too many geocoding requests, try again shortly")
	r.Mount("/api/geo", geoLimit(geofeature.Routes(geoHandler)))

	// Administration
	adminHandler := adminfeature.NewHandler(db, s.Users, s.Listings, s.Notifier, s.AuditLog, logger)
	auditHandler := auditlogfeature.NewHandler(s.Audit, s.Users, logger)
	adminRouter := adminfeature.Routes(adminHandler)
	adminRouter.Mount("/audit", auditlogfeature.Routes(auditHandler))
	r.Mount("/api/admin", adminRouter)

	// Realtime
	wsHandler := wsfeature.NewHandler(s.Hub, s.Auth, appCfg.CORSOrigins, logger)
	r.Mount("/ws", wsfeature.Routes(wsHandler))

	return r, nil
}

func corsOptions(origins []string) cors.Options {
	allowed := origins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	for _, o := range allowed {
		if o == "*" {
			allowed = []string{"*"}
			break
		}
	}
	return cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}
}
