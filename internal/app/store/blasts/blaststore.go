// internal/app/store/blasts/blaststore.go
package blaststore

import (
	"context"
	"errors"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound    = apperr.NotFound("emergency blast not found")
	ErrOwnBlast    = apperr.BusinessRule("you cannot respond to your own blast")
	errBadLocation = apperr.Validation("valid coordinates are required")
	errNoMessage   = apperr.Validation("message is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("emergency_blasts")}
}

// Create stores a new blast with no responders.
func (s *Store) Create(ctx context.Context, b models.EmergencyBlast) (models.EmergencyBlast, error) {
	if b.Message == "" {
		return models.EmergencyBlast{}, errNoMessage
	}
	if !b.Location.Valid() {
		return models.EmergencyBlast{}, errBadLocation
	}
	b.ID = primitive.NewObjectID()
	b.Responders = []models.BlastResponder{}
	b.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.EmergencyBlast{}, err
	}
	return b, nil
}

// SetNotified records how many donors the blast reached.
func (s *Store) SetNotified(ctx context.Context, id primitive.ObjectID, n int) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"notified_count": n}})
	return err
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.EmergencyBlast, error) {
	var b models.EmergencyBlast
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.EmergencyBlast{}, ErrNotFound
		}
		return models.EmergencyBlast{}, err
	}
	return b, nil
}

// Respond records donor's acknowledgement. Responding again leaves the blast
// unchanged; added reports whether this call recorded a new response.
func (s *Store) Respond(ctx context.Context, id, donor primitive.ObjectID) (b models.EmergencyBlast, added bool, err error) {
	entry := models.BlastResponder{
		DonorID:     donor,
		Status:      models.ResponderAccepted,
		RespondedAt: time.Now().UTC(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                 id,
			"requester_id":        bson.M{"$ne": donor},
			"responders.donor_id": bson.M{"$ne": donor},
		},
		bson.M{"$push": bson.M{"responders": entry}},
		opts,
	).Decode(&b)
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.EmergencyBlast{}, false, err
	}

	b, err = s.GetByID(ctx, id)
	if err != nil {
		return models.EmergencyBlast{}, false, err
	}
	if b.RequesterID == donor {
		return models.EmergencyBlast{}, false, ErrOwnBlast
	}
	return b, false, nil
}

// ByRequester returns the blasts requester sent, newest first.
func (s *Store) ByRequester(ctx context.Context, requester primitive.ObjectID) ([]models.EmergencyBlast, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"requester_id": requester}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.EmergencyBlast{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
