// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (HOPELINK_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// covers the framework-level settings (ports, TLS, log level).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string
	JWTTTL    time.Duration

	// Browser origins allowed by CORS and the websocket upgrader. Empty or
	// "*" allows any origin.
	CORSOrigins []string

	// NATS fan-out between instances. Blank URL keeps realtime in-process.
	NATSURL           string
	NATSSubjectPrefix string

	// Image storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string
	StorageLocalURL  string
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string
	StoragePublicURL string // CDN or bucket URL for S3 objects

	// Email/SMTP configuration
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// BaseURL is the web app origin used in password reset links and as the
	// landing page after Google sign-in.
	BaseURL             string
	PasswordResetExpiry time.Duration

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Push providers. FCM is disabled when no credentials file is set.
	FirebaseCredentialsFile string
	ExpoAccessToken         string

	// Geocoding
	GeocodeBaseURL   string
	GeocodeUserAgent string

	EmergencyRadiusKm float64

	// Notification dispatcher
	NotifyWorkers   int
	NotifyQueueSize int
	PushTimeout     time.Duration

	// AdminEmail is promoted to admin on startup when that account exists.
	AdminEmail string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string
}
