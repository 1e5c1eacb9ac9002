package listingstore

import (
	"context"
	"errors"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Each transition below is one conditional write whose filter encodes every
// precondition. When it matches nothing the listing is left untouched and
// re-read only to pick the error.

// Request adds caller to the requesters of an active listing they do not own.
func (s *Store) Request(ctx context.Context, id, caller primitive.ObjectID) (models.Listing, error) {
	filter := bson.M{
		"_id":          id,
		"status":       models.StatusActive,
		"owner_id":     bson.M{"$ne": caller},
		"requested_by": bson.M{"$ne": caller},
	}
	update := bson.M{
		"$addToSet": bson.M{"requested_by": caller},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	l, err := s.casUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return models.Listing{}, s.explain(ctx, id, func(cur models.Listing) error {
			switch {
			case cur.OwnerID == caller:
				return ErrOwnListing
			case cur.Status != models.StatusActive:
				return ErrNotActive
			default:
				return ErrAlreadyRequested
			}
		})
	}
	return l, err
}

// Approve hands an active listing to one of its requesters.
func (s *Store) Approve(ctx context.Context, id, owner, receiver primitive.ObjectID) (models.Listing, error) {
	filter := bson.M{
		"_id":          id,
		"owner_id":     owner,
		"status":       models.StatusActive,
		"requested_by": receiver,
	}
	update := bson.M{"$set": bson.M{
		"receiver_id": receiver,
		"status":      models.StatusPending,
		"updated_at":  time.Now().UTC(),
	}}
	l, err := s.casUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return models.Listing{}, s.explain(ctx, id, func(cur models.Listing) error {
			switch {
			case cur.OwnerID != owner:
				return ErrNotOwner
			case cur.Status != models.StatusActive:
				return ErrNotActive
			default:
				return ErrNotRequester
			}
		})
	}
	return l, err
}

// Fulfill completes a pending listing when pin matches the stored code.
// Reputation awards are the caller's job.
func (s *Store) Fulfill(ctx context.Context, id, owner primitive.ObjectID, pin string) (models.Listing, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":      id,
		"owner_id": owner,
		"status":   models.StatusPending,
		"pin":      pin,
	}
	update := bson.M{"$set": bson.M{
		"status":       models.StatusFulfilled,
		"fulfilled_at": now,
		"updated_at":   now,
	}}
	l, err := s.casUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return models.Listing{}, s.explain(ctx, id, func(cur models.Listing) error {
			switch {
			case cur.OwnerID != owner:
				return ErrNotOwner
			case cur.Status != models.StatusPending:
				return ErrNotPending
			default:
				return ErrWrongPIN
			}
		})
	}
	return l, err
}

// AcceptSOS makes helper the receiver of an active emergency listing. Of two
// concurrent accepts exactly one matches the status filter.
func (s *Store) AcceptSOS(ctx context.Context, id, helper primitive.ObjectID) (models.Listing, error) {
	filter := bson.M{
		"_id":          id,
		"is_emergency": true,
		"status":       models.StatusActive,
		"owner_id":     bson.M{"$ne": helper},
	}
	update := bson.M{"$set": bson.M{
		"receiver_id": helper,
		"status":      models.StatusPending,
		"updated_at":  time.Now().UTC(),
	}}
	l, err := s.casUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return models.Listing{}, s.explain(ctx, id, func(cur models.Listing) error {
			switch {
			case !cur.IsEmergency:
				return ErrNotEmergency
			case cur.OwnerID == helper:
				return ErrOwnListing
			default:
				return ErrAlreadyAccepted
			}
		})
	}
	return l, err
}
