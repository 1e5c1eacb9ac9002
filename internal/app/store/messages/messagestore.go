// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = apperr.NotFound("message not found")
	ErrNotSender = apperr.Forbidden("only the sender can change this message")
	ErrSelf      = apperr.Validation("you cannot message yourself")
	ErrEmpty     = apperr.Validation("message content is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Create persists a new unread message.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	if m.SenderID == m.ReceiverID {
		return models.Message{}, ErrSelf
	}
	if strings.TrimSpace(m.Content) == "" {
		return models.Message{}, ErrEmpty
	}
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.Read = false
	m.Edited = false
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Message, error) {
	var m models.Message
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Message{}, ErrNotFound
		}
		return models.Message{}, err
	}
	return m, nil
}

func between(me, counterpart primitive.ObjectID) bson.A {
	return bson.A{
		bson.M{"sender_id": me, "receiver_id": counterpart},
		bson.M{"sender_id": counterpart, "receiver_id": me},
	}
}

// Thread returns the conversation between me and counterpart about listing,
// oldest first.
func (s *Store) Thread(ctx context.Context, listing, me, counterpart primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{"listing_id": listing, "$or": between(me, counterpart)}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, filter, opts)
}

// Involving returns every message me sent or received, newest first.
func (s *Store) Involving(ctx context.Context, me primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": me},
		bson.M{"receiver_id": me},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, filter, opts)
}

// MarkRead marks the messages counterpart sent to me about listing as read
// and returns how many changed.
func (s *Store) MarkRead(ctx context.Context, listing, me, counterpart primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"listing_id": listing, "sender_id": counterpart, "receiver_id": me, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount returns the number of unread messages addressed to me.
func (s *Store) UnreadCount(ctx context.Context, me primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"receiver_id": me, "read": false})
}

// Edit replaces the content of a message sent by sender.
func (s *Store) Edit(ctx context.Context, id, sender primitive.ObjectID, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, ErrEmpty
	}
	var m models.Message
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "sender_id": sender},
		bson.M{"$set": bson.M{"content": content, "edited": true, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, s.notSender(ctx, id)
	}
	if err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// Delete hard-deletes a message sent by sender and returns it.
func (s *Store) Delete(ctx context.Context, id, sender primitive.ObjectID) (models.Message, error) {
	var m models.Message
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id, "sender_id": sender}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, s.notSender(ctx, id)
	}
	if err != nil {
		return models.Message{}, err
	}
	return m, nil
}

func (s *Store) notSender(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNotSender
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
