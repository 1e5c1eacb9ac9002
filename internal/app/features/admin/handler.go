// internal/app/features/admin/handler.go
package admin

import (
	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/auditlog"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin dashboard, user and listing moderation, and
// global alerts. Every mutation is audited.
type Handler struct {
	DB       *mongo.Database
	Users    *userstore.Store
	Listings *listingstore.Store
	Notifier *notify.Notifier
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	users *userstore.Store,
	listings *listingstore.Store,
	n *notify.Notifier,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:       db,
		Users:    users,
		Listings: listings,
		Notifier: n,
		AuditLog: audit,
		Log:      logger,
	}
}
