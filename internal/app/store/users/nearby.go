package userstore

import (
	"context"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NearbyQuery selects donors around a point.
type NearbyQuery struct {
	Point      models.GeoPoint
	RadiusKm   float64
	BloodGroup string             // optional exact match
	ExcludeID  primitive.ObjectID // usually the caller
	Limit      int64              // 0 means no limit
}

// NearbyDonors returns users whose active role is donor within RadiusKm of
// Point, nearest first ($near sorts by distance).
func (s *Store) NearbyDonors(ctx context.Context, q NearbyQuery) ([]models.User, error) {
	filter := bson.M{
		"location": bson.M{"$near": bson.M{
			"$geometry":    q.Point,
			"$maxDistance": q.RadiusKm * 1000,
		}},
		"active_role": models.RoleDonor,
	}
	if !q.ExcludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": q.ExcludeID}
	}
	if q.BloodGroup != "" {
		filter["blood_group"] = q.BloodGroup
	}

	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// WithDeviceTokens keeps the users that registered at least one push token.
func WithDeviceTokens(users []models.User) []models.User {
	out := users[:0:0]
	for _, u := range users {
		if u.PushToken != "" || u.WebPushToken != "" {
			out = append(out, u)
		}
	}
	return out
}
