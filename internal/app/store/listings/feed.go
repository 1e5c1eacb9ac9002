package listingstore

import (
	"context"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// earthRadiusKm converts kilometres to radians for $centerSphere.
const earthRadiusKm = 6378.1

// FeedQuery selects active listings for the public feed.
type FeedQuery struct {
	Near        *models.GeoPoint // nil means newest first
	RadiusKm    float64          // 0 means uncapped; only used with Near
	Category    string
	ListingType string
	BloodGroup  string
	Skip        int64
	Limit       int64
}

func (q FeedQuery) baseFilter() bson.M {
	filter := bson.M{"status": models.StatusActive}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.ListingType != "" {
		filter["listing_type"] = q.ListingType
	}
	if q.BloodGroup != "" {
		filter["blood_group"] = q.BloodGroup
	}
	return filter
}

// Feed returns one page of active listings and the total number matching.
// With a point, results come nearest first from $near; the total is counted
// with $geoWithin since count queries cannot use $near.
func (s *Store) Feed(ctx context.Context, q FeedQuery) ([]models.Listing, int64, error) {
	filter := q.baseFilter()
	countFilter := q.baseFilter()
	opts := options.Find().SetSkip(q.Skip).SetLimit(q.Limit)

	if q.Near != nil {
		near := bson.M{"$geometry": *q.Near}
		if q.RadiusKm > 0 {
			near["$maxDistance"] = q.RadiusKm * 1000
			countFilter["location"] = bson.M{"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{q.Near.Lng(), q.Near.Lat()},
					q.RadiusKm / earthRadiusKm,
				},
			}}
		}
		filter["location"] = bson.M{"$near": near}
	} else {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	}

	total, err := s.c.CountDocuments(ctx, countFilter)
	if err != nil {
		return nil, 0, err
	}
	listings, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// Mine returns every listing owned by owner, newest first.
func (s *Store) Mine(ctx context.Context, owner primitive.ObjectID) ([]models.Listing, error) {
	return s.find(ctx, bson.M{"owner_id": owner}, newestFirst())
}

// Requested returns the listings user has requested or been approved for.
func (s *Store) Requested(ctx context.Context, user primitive.ObjectID) ([]models.Listing, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"requested_by": user},
		bson.M{"receiver_id": user},
	}}
	return s.find(ctx, filter, newestFirst())
}

// ListFilter narrows the moderation listing view.
type ListFilter struct {
	Status string
	Skip   int64
	Limit  int64
}

// List returns listings of any owner, newest first, plus the match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Listing, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	listings, err := s.find(ctx, filter, newestFirst().SetSkip(f.Skip).SetLimit(f.Limit))
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// Titles maps listing IDs to titles. Missing listings are omitted.
func (s *Store) Titles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"title": 1})
	ls, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	for _, l := range ls {
		out[l.ID] = l.Title
	}
	return out, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Listing, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Listing{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
