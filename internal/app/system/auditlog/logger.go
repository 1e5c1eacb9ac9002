// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/store/audit"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether m is a known destination. Blank means ModeAll.
func ValidMode(m string) bool {
	switch m {
	case "", ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config selects a destination per category.
type Config struct {
	Auth  string
	Admin string
}

// Logger records audit events to the audit store and to zap.
// A nil *Logger is a valid no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) mode(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAdmin:
		return l.config.Admin
	}
	return ModeAll
}

// Log records event according to the category's configured destination.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	mode := l.mode(event.Category)
	if mode == ModeOff {
		return
	}
	if mode == ModeAll || mode == ModeLog || mode == "" {
		l.logToZap(event)
	}
	if mode == ModeAll || mode == ModeDB || mode == "" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication events ---

// Registered logs a new local account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	}))
}

// LoginSuccess logs a successful login by method ("password" or "google").
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	eventType := audit.EventLoginSuccess
	if method == "google" {
		eventType = audit.EventGoogleLogin
	}
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"method": method},
	}))
}

// LoginFailed logs a rejected login. userID is nil when the email is unknown.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, email, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	}))
}

// LoginRateLimited logs an attempt blocked by the auth limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginRateLimited,
		Success:       false,
		FailureReason: "rate limited",
		Details:       map[string]string{"email": email},
	}))
}

// PasswordResetSent logs that a reset link was issued.
func (l *Logger) PasswordResetSent(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordResetSent,
		UserID:    &userID,
		Success:   true,
	}))
}

// PasswordResetDone logs a completed reset.
func (l *Logger) PasswordResetDone(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordResetDone,
		UserID:    &userID,
		Success:   true,
	}))
}

// --- Admin events ---

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		UserID:    target,
		Success:   true,
		Details:   details,
	}))
}

// AdminChanged logs granting or revoking admin rights.
func (l *Logger) AdminChanged(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, isAdmin bool) {
	eventType := audit.EventAdminRevoked
	if isAdmin {
		eventType = audit.EventAdminGranted
	}
	l.admin(ctx, r, eventType, actorID, &targetID, nil)
}

// ActiveRoleChanged logs an admin switching a user's active role.
func (l *Logger) ActiveRoleChanged(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, role string) {
	l.admin(ctx, r, audit.EventActiveRoleChanged, actorID, &targetID, map[string]string{"role": role})
}

// UserDeleted logs an admin deleting a user and how many listings went with it.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, email string, listingsRemoved int64) {
	l.admin(ctx, r, audit.EventUserDeleted, actorID, &targetID, map[string]string{
		"email":            email,
		"listings_removed": strconv.FormatInt(listingsRemoved, 10),
	})
}

// ListingRemoved logs a moderation delete.
func (l *Logger) ListingRemoved(ctx context.Context, r *http.Request, actorID, listingID, ownerID primitive.ObjectID, title string) {
	l.admin(ctx, r, audit.EventListingRemoved, actorID, &ownerID, map[string]string{
		"listing_id": listingID.Hex(),
		"title":      title,
	})
}

// BroadcastSent logs a global admin alert.
func (l *Logger) BroadcastSent(ctx context.Context, r *http.Request, actorID primitive.ObjectID, message string) {
	l.admin(ctx, r, audit.EventBroadcastSent, actorID, nil, map[string]string{"message": message})
}

// BootstrapAdmin logs the startup promotion of the configured admin email.
func (l *Logger) BootstrapAdmin(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventBootstrapAdmin,
		UserID:    &userID,
		IP:        "startup",
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}
