// internal/app/bootstrap/services.go
package bootstrap

import (
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
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/ratelimit"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/realtime"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/tasks"
)

// Services is the set of long-lived collaborators built once in Startup and
// handed to feature handlers.
type Services struct {
	Metrics    *metrics.Metrics
	Hub        *realtime.Hub
	Bus        *realtime.NATSBus // nil when realtime is in-process
	Dispatcher *notify.Dispatcher
	Notifier   *notify.Notifier
	Tokens     *auth.Tokens
	Auth       *auth.Middleware
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.AuthLimiter
	GeoLimiter *ratelimit.Limiter
	Mailer     *mailer.Mailer
	Images     imagestore.Store
	Geocoder   *geocode.Client
	Tasks      *tasks.Scheduler

	Users    *userstore.Store
	Listings *listingstore.Store
	Messages *messagestore.Store
	Blasts   *blaststore.Store
	Events   *eventstore.Store
	Audit    *audit.Store
}
