// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auditlog"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// minJWTSecretLen rejects placeholder secrets.
const minJWTSecretLen = 32

// appConfigKeys defines the configuration keys for HopeLink.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: HOPELINK_MONGO_URI, HOPELINK_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hopelink", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: "", Desc: "HS256 signing secret for bearer tokens (at least 32 characters)"},
	{Name: "jwt_ttl", Default: "720h", Desc: "Bearer token lifetime (e.g., 720h)"},
	{Name: "cors_origins", Default: "*", Desc: "Comma-separated allowed browser origins, or *"},

	// Realtime fan-out across instances
	{Name: "nats_url", Default: "", Desc: "NATS server URL; blank keeps realtime in-process"},
	{Name: "nats_subject_prefix", Default: "hopelink", Desc: "Subject prefix for realtime events on NATS"},

	// Image storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/images", Desc: "Local storage path for uploaded images"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local images"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "images/", Desc: "S3 key prefix"},
	{Name: "storage_public_url", Default: "", Desc: "Public URL for S3 objects (CDN); defaults to the bucket URL"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host; blank disables email"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@hopelink.org", Desc: "From email address"},
	{Name: "mail_from_name", Default: "HopeLink", Desc: "From display name"},

	{Name: "base_url", Default: "http://localhost:5173", Desc: "Web app URL for reset links and OAuth landing"},
	{Name: "password_reset_expiry", Default: "15m", Desc: "Password reset link lifetime"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_redirect_url", Default: "http://localhost:5000/api/auth/google/callback", Desc: "Google OAuth2 callback URL"},

	// Push notifications
	{Name: "firebase_credentials_file", Default: "", Desc: "Firebase service account JSON for web push; blank disables FCM"},
	{Name: "expo_access_token", Default: "", Desc: "Expo access token (optional)"},

	// Geocoding
	{Name: "geocode_base_url", Default: "https://nominatim.openstreetmap.org", Desc: "Nominatim-compatible geocoding service"},
	{Name: "geocode_user_agent", Default: "hopelink/1.0", Desc: "User-Agent sent to the geocoding service"},

	{Name: "emergency_radius_km", Default: 20, Desc: "Radius for emergency donor searches in km"},

	// Notification dispatcher
	{Name: "notify_workers", Default: 4, Desc: "Notification worker goroutines"},
	{Name: "notify_queue_size", Default: 1024, Desc: "Notification queue capacity; jobs beyond it are dropped"},
	{Name: "push_timeout", Default: "15s", Desc: "Deadline for one push notification job"},

	{Name: "admin_email", Default: "", Desc: "Email of an existing account to promote to admin on startup"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, HOPELINK_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HOPELINK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:   appValues.String("jwt_secret"),
		JWTTTL:      appValues.Duration("jwt_ttl", 30*24*time.Hour),
		CORSOrigins: splitList(appValues.String("cors_origins")),

		NATSURL:           appValues.String("nats_url"),
		NATSSubjectPrefix: appValues.String("nats_subject_prefix"),

		// Image storage
		StorageType:      strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  strings.TrimRight(appValues.String("storage_local_url"), "/"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),
		StoragePublicURL: appValues.String("storage_public_url"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:             appValues.String("base_url"),
		PasswordResetExpiry: appValues.Duration("password_reset_expiry", 15*time.Minute),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		GoogleRedirectURL:  appValues.String("google_redirect_url"),

		// Push
		FirebaseCredentialsFile: appValues.String("firebase_credentials_file"),
		ExpoAccessToken:         appValues.String("expo_access_token"),

		// Geocoding
		GeocodeBaseURL:   appValues.String("geocode_base_url"),
		GeocodeUserAgent: appValues.String("geocode_user_agent"),

		EmergencyRadiusKm: float64(appValues.Int("emergency_radius_km")),

		NotifyWorkers:   appValues.Int("notify_workers"),
		NotifyQueueSize: appValues.Int("notify_queue_size"),
		PushTimeout:     appValues.Duration("push_timeout", timeouts.DefaultPush),

		AdminEmail: strings.TrimSpace(appValues.String("admin_email")),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// It catches configuration errors before any connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", minJWTSecretLen)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type 'local' requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type 's3' requires storage_s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want 'local' or 's3')", appCfg.StorageType)
	}

	for _, m := range []struct{ key, value string }{
		{"audit_log_auth", appCfg.AuditLogAuth},
		{"audit_log_admin", appCfg.AuditLogAdmin},
	} {
		if !auditlog.ValidMode(m.value) {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", m.key, m.value)
		}
	}

	if appCfg.EmergencyRadiusKm <= 0 {
		return fmt.Errorf("emergency_radius_km must be positive")
	}
	if appCfg.NotifyWorkers < 1 || appCfg.NotifyQueueSize < 1 {
		return fmt.Errorf("notify_workers and notify_queue_size must be at least 1")
	}

	return nil
}
