// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/store/audit"
	blaststore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/blasts"
	eventstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/events"
	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	messagestore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/messages"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auditlog"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auth"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/geocode"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/imagestore"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/mailer"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/metrics"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/push"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/ratelimit"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/realtime"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/tasks"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// geoRequestsPerMinute caps geocoding proxy calls per client IP.
const geoRequestsPerMinute = 30

// Startup builds every long-lived collaborator after DB connections and
// schema setup are complete, but before the HTTP handler is built.
// Background workers started here are stopped in Shutdown.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.App == nil {
		return errors.New("startup: DBDeps.App is nil")
	}
	db := deps.MongoDatabase
	s := deps.App

	timeouts.Configure(timeouts.Config{Push: appCfg.PushTimeout})

	s.Users = userstore.New(db)
	s.Listings = listingstore.New(db)
	s.Messages = messagestore.New(db)
	s.Blasts = blaststore.New(db)
	s.Events = eventstore.New(db)
	s.Audit = audit.New(db)

	s.Metrics = metrics.New()
	s.Hub = realtime.NewHub(logger, s.Metrics.WSClients)
	var rt realtime.Publisher = s.Hub
	if deps.NATS != nil {
		bus, err := realtime.NewNATSBus(deps.NATS, appCfg.NATSSubjectPrefix, s.Hub, logger)
		if err != nil {
			return fmt.Errorf("realtime bus: %w", err)
		}
		s.Bus = bus
		rt = bus
	}

	sender, err := buildPush(ctx, appCfg, logger)
	if err != nil {
		return err
	}

	images, err := buildImageStore(ctx, appCfg)
	if err != nil {
		return err
	}
	s.Images = images

	s.Mailer = mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	})
	if !s.Mailer.Enabled() {
		logger.Warn("mail_smtp_host not set; password reset emails are disabled")
	}

	s.Dispatcher = notify.NewDispatcher(logger, s.Metrics, appCfg.NotifyWorkers, appCfg.NotifyQueueSize, timeouts.Push())
	s.Dispatcher.Start()

	s.Notifier = &notify.Notifier{
		RT:                rt,
		Push:              sender,
		Users:             s.Users,
		Jobs:              s.Dispatcher,
		Log:               logger,
		EmergencyRadiusKm: appCfg.EmergencyRadiusKm,
	}

	s.Tokens, err = auth.NewTokens(appCfg.JWTSecret, appCfg.JWTTTL)
	if err != nil {
		return err
	}
	s.Auth = auth.NewMiddleware(s.Tokens, s.Users, logger)
	s.AuditLog = auditlog.New(s.Audit, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	s.Limiter = ratelimit.NewAuthLimiter()
	s.GeoLimiter = ratelimit.New(geoRequestsPerMinute, time.Minute)
	s.Geocoder = geocode.New(geocode.Config{
		BaseURL:   appCfg.GeocodeBaseURL,
		UserAgent: appCfg.GeocodeUserAgent,
		Timeout:   timeouts.Medium(),
	})

	s.Tasks = tasks.NewScheduler(logger, timeouts.Long(),
		tasks.ResetTokenCleanupJob(s.Users, logger),
		tasks.EventCleanupJob(s.Events, logger),
	)
	s.Tasks.Start()

	actx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	return ensureBootstrapAdmin(actx, s.Users, s.AuditLog, appCfg.AdminEmail, logger)
}

// buildPush routes Expo tokens to Expo and browser tokens to FCM. Without
// Firebase credentials browser tokens are accepted and dropped.
func buildPush(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (push.Sender, error) {
	multi := push.Multi{
		Expo: push.NewExpo(push.ExpoConfig{
			AccessToken: appCfg.ExpoAccessToken,
			Timeout:     timeouts.Push(),
		}, logger),
		Web: push.Noop{},
	}
	if appCfg.FirebaseCredentialsFile == "" {
		logger.Info("firebase_credentials_file not set; web push disabled")
		return multi, nil
	}
	fcm, err := push.NewFCM(ctx, appCfg.FirebaseCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	multi.Web = fcm
	return multi, nil
}

func buildImageStore(ctx context.Context, appCfg AppConfig) (imagestore.Store, error) {
	if appCfg.StorageType == "s3" {
		st, err := imagestore.NewS3(ctx, imagestore.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			PublicURL: appCfg.StoragePublicURL,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := imagestore.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ensureBootstrapAdmin promotes the configured admin account. The account
// must already exist; a missing one is logged and skipped.
func ensureBootstrapAdmin(ctx context.Context, users *userstore.Store, audit *auditlog.Logger, email string, logger *zap.Logger) error {
	email = normalize.Email(email)
	if email == "" {
		return nil
	}
	u, changed, err := users.PromoteByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		logger.Warn("admin_email has no account yet; register it and restart", zap.String("email", email))
		return nil
	}
	if err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	if changed {
		logger.Info("promoted bootstrap admin", zap.String("email", email), zap.String("user_id", u.ID.Hex()))
		audit.BootstrapAdmin(ctx, u.ID, u.Email)
	}
	return nil
}
