package userstore

import (
	"context"
	"errors"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// rankStage recomputes rank from the (already updated) points field. It
// mirrors models.RankFor.
var rankStage = bson.D{{Key: "$set", Value: bson.M{
	"rank": bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$gte": bson.A{"$points", models.HeroPoints}}, "then": models.RankHero},
			bson.M{"case": bson.M{"$gte": bson.A{"$points", models.GuardianPoints}}, "then": models.RankGuardian},
		},
		"default": models.RankHelper,
	}},
}}}

func inc(field string, by int) bson.M {
	return bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, by}}
}

// AwardOwner credits the owner of a fulfilled listing: points, one more
// donation, and a recomputed rank, as a single pipeline update.
func (s *Store) AwardOwner(ctx context.Context, id primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"points":          inc("points", models.OwnerFulfillPoints),
			"donations_count": inc("donations_count", 1),
			"updated_at":      "$$NOW",
		}}},
		rankStage,
	}
	return s.updatePipeline(ctx, id, pipeline)
}

// AwardReceiver folds a 1-5 rating into the receiver's running average and
// credits the receiver's points. Without a valid rating, or when the receiver
// account no longer exists, it does nothing.
func (s *Store) AwardReceiver(ctx context.Context, id primitive.ObjectID, rating int) error {
	if !models.IsValidRating(rating) {
		return nil
	}
	count := bson.M{"$ifNull": bson.A{"$rating_count", 0}}
	avg := bson.M{"$divide": bson.A{
		bson.M{"$add": bson.A{
			bson.M{"$multiply": bson.A{bson.M{"$ifNull": bson.A{"$rating", 0}}, count}},
			rating,
		}},
		bson.M{"$add": bson.A{count, 1}},
	}}
	set := bson.M{
		"points":       inc("points", models.ReceiverFulfillPoints),
		"rating":       avg,
		"rating_count": bson.M{"$add": bson.A{count, 1}},
		"updated_at":   "$$NOW",
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}, rankStage}
	if err := s.updatePipeline(ctx, id, pipeline); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Store) updatePipeline(ctx context.Context, id primitive.ObjectID, pipeline mongo.Pipeline) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
