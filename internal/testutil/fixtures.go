package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly into the collections.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for db.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database { return f.db }

// UserOpt customizes a fixture user before insert.
type UserOpt func(*models.User)

// At places the user at lng/lat.
func At(lng, lat float64) UserOpt {
	return func(u *models.User) {
		p := models.NewGeoPoint(lng, lat)
		u.Location = &p
	}
}

// AsReceiver sets the active role to receiver.
func AsReceiver() UserOpt {
	return func(u *models.User) { u.ActiveRole = models.RoleReceiver }
}

// AsAdmin flags the user as an admin.
func AsAdmin() UserOpt {
	return func(u *models.User) { u.IsAdmin = true }
}

// WithBloodGroup sets the blood group.
func WithBloodGroup(bg string) UserOpt {
	return func(u *models.User) { u.BloodGroup = bg }
}

// WithPushToken sets the Expo push token.
func WithPushToken(tok string) UserOpt {
	return func(u *models.User) { u.PushToken = tok }
}

// WithPoints sets points and the matching rank.
func WithPoints(points int) UserOpt {
	return func(u *models.User) {
		u.Points = points
		u.Rank = models.RankFor(points)
	}
}

// WithRating sets the running rating and its count.
func WithRating(rating float64, count int) UserOpt {
	return func(u *models.User) {
		u.Rating = rating
		u.RatingCount = count
	}
}

// CreateUser inserts a donor with the given name and email.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string, opts ...UserOpt) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        email,
		AuthProvider: models.ProviderLocal,
		ActiveRole:   models.RoleDonor,
		Rank:         models.RankHelper,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, o := range opts {
		o(&u)
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// ListingOpt customizes a fixture listing before insert.
type ListingOpt func(*models.Listing)

// WithStatus sets the status (and a receiver when not active).
func WithStatus(status string, receiver *primitive.ObjectID) ListingOpt {
	return func(l *models.Listing) {
		l.Status = status
		l.ReceiverID = receiver
	}
}

// WithCategory sets the category.
func WithCategory(c string) ListingOpt {
	return func(l *models.Listing) { l.Category = c }
}

// AsRequest marks the listing as a request rather than a donation.
func AsRequest() ListingOpt {
	return func(l *models.Listing) { l.ListingType = models.ListingRequest }
}

// AsEmergency marks the listing as an emergency blood request.
func AsEmergency() ListingOpt {
	return func(l *models.Listing) {
		l.IsEmergency = true
		l.Category = models.CategoryBlood
		l.ListingType = models.ListingRequest
	}
}

// WithPIN sets the pickup PIN.
func WithPIN(pin string) ListingOpt {
	return func(l *models.Listing) { l.PIN = pin }
}

// RequestedBy seeds the requester set.
func RequestedBy(ids ...primitive.ObjectID) ListingOpt {
	return func(l *models.Listing) { l.RequestedBy = append(l.RequestedBy, ids...) }
}

// ListingAt places the listing at lng/lat.
func ListingAt(lng, lat float64) ListingOpt {
	return func(l *models.Listing) { l.Location = models.NewGeoPoint(lng, lat) }
}

// CreatedAt overrides the creation time.
func CreatedAt(ts time.Time) ListingOpt {
	return func(l *models.Listing) { l.CreatedAt = ts }
}

// CreateListing inserts an active food donation owned by owner.
func (f *Fixtures) CreateListing(ctx context.Context, owner primitive.ObjectID, title string, opts ...ListingOpt) models.Listing {
	f.t.Helper()

	now := time.Now().UTC()
	l := models.Listing{
		ID:          primitive.NewObjectID(),
		OwnerID:     owner,
		ListingType: models.ListingDonation,
		Category:    models.CategoryFood,
		Title:       title,
		RequestedBy: []primitive.ObjectID{},
		PIN:         "1234",
		Location:    models.NewGeoPoint(77.5946, 12.9716),
		Status:      models.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, o := range opts {
		o(&l)
	}

	if _, err := f.db.Collection("listings").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test listing: %v", err)
	}
	return l
}

// CreateMessage inserts a message from sender to receiver about listing.
func (f *Fixtures) CreateMessage(ctx context.Context, sender, receiver, listing primitive.ObjectID, content string, at time.Time) models.Message {
	f.t.Helper()

	m := models.Message{
		ID:         primitive.NewObjectID(),
		SenderID:   sender,
		ReceiverID: receiver,
		ListingID:  listing,
		Content:    content,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}
