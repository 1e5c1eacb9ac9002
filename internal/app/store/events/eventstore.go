package eventstore

import (
	"context"
	"strings"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// Create stores an event. The TTL index on expire_at removes it one
// retention period after its date.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return models.Event{}, apperr.Validation("title is required")
	}
	if e.Date.IsZero() {
		return models.Event{}, apperr.Validation("date is required")
	}
	if e.Location != nil && !e.Location.Valid() {
		return models.Event{}, apperr.Validation("invalid coordinates")
	}
	e.ID = primitive.NewObjectID()
	e.Date = e.Date.UTC()
	e.ExpireAt = e.Date.Add(models.EventRetention)
	e.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Upcoming returns events that have not expired as of now, soonest first.
// The TTL monitor runs about once a minute, so expiry is also filtered here.
func (s *Store) Upcoming(ctx context.Context, now time.Time, limit int64) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"expire_at": bson.M{"$gt": now.UTC()}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExpired removes events whose expiry has passed. It backs up the TTL
// monitor, which can lag.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expire_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
