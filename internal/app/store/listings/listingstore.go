// internal/app/store/listings/listingstore.go
package listingstore

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = apperr.NotFound("listing not found")
	ErrNotOwner = apperr.Forbidden("not authorized to modify this listing")

	ErrOwnListing       = apperr.BusinessRule("you cannot request your own listing")
	ErrAlreadyRequested = apperr.BusinessRule("you have already requested this listing")
	ErrNotActive        = apperr.BusinessRule("listing is no longer active")
	ErrNotRequester     = apperr.BusinessRule("that user has not requested this listing")
	ErrNotPending       = apperr.BusinessRule("listing is not awaiting handover")
	ErrWrongPIN         = apperr.BusinessRule("invalid PIN")
	ErrNotEmergency     = apperr.BusinessRule("listing is not an emergency")
	ErrAlreadyAccepted  = apperr.BusinessRule("emergency already accepted by another donor")
	ErrFulfilled        = apperr.BusinessRule("fulfilled listings cannot be changed")

	errBadType       = apperr.Validation(`listing_type must be "donation" or "request"`)
	errBadCategory   = apperr.Validation("invalid category")
	errBadBloodGroup = apperr.Validation("invalid blood group")
	errBadLocation   = apperr.Validation("valid coordinates are required")
	errNoTitle       = apperr.Validation("title is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("listings")}
}

// NewPIN returns a random 4-digit pickup code.
func NewPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000, 10), nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Listing, error) {
	var l models.Listing
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Listing{}, ErrNotFound
		}
		return models.Listing{}, err
	}
	return l, nil
}

// Create validates and inserts a new active listing with a fresh PIN.
func (s *Store) Create(ctx context.Context, l models.Listing) (models.Listing, error) {
	l.Title = strings.TrimSpace(l.Title)
	if l.Title == "" {
		return models.Listing{}, errNoTitle
	}
	if l.ListingType == "" {
		l.ListingType = models.ListingDonation
	}
	if !models.IsValidListingType(l.ListingType) {
		return models.Listing{}, errBadType
	}
	if !models.IsValidCategory(l.Category) {
		return models.Listing{}, errBadCategory
	}
	if !l.Location.Valid() {
		return models.Listing{}, errBadLocation
	}
	if l.Category == models.CategoryBlood {
		if l.BloodGroup != "" {
			bg := normalize.BloodGroup(l.BloodGroup)
			if bg == "" {
				return models.Listing{}, errBadBloodGroup
			}
			l.BloodGroup = bg
		}
	} else {
		l.BloodGroup = ""
		l.IsEmergency = false
	}

	pin, err := NewPIN()
	if err != nil {
		return models.Listing{}, err
	}

	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	l.PIN = pin
	l.Status = models.StatusActive
	l.RequestedBy = []primitive.ObjectID{}
	l.ReceiverID = nil
	l.FulfilledAt = nil
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.Listing{}, err
	}
	return l, nil
}

// Update holds optional listing edits; nil fields are left alone.
type Update struct {
	Title       *string
	Description *string
	Quantity    *string
	Address     *string
	Category    *string
	BloodGroup  *string
	ImageURL    *string
	Location    *models.GeoPoint
}

// Update edits an active listing owned by owner.
func (s *Store) Update(ctx context.Context, id, owner primitive.ObjectID, upd Update) (models.Listing, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return models.Listing{}, errNoTitle
		}
		set["title"] = title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Quantity != nil {
		set["quantity"] = *upd.Quantity
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.ImageURL != nil {
		set["image_url"] = *upd.ImageURL
	}
	if upd.Category != nil {
		if !models.IsValidCategory(*upd.Category) {
			return models.Listing{}, errBadCategory
		}
		set["category"] = *upd.Category
	}
	if upd.BloodGroup != nil && *upd.BloodGroup != "" {
		bg := normalize.BloodGroup(*upd.BloodGroup)
		if bg == "" {
			return models.Listing{}, errBadBloodGroup
		}
		set["blood_group"] = bg
	}
	if upd.Location != nil {
		if !upd.Location.Valid() {
			return models.Listing{}, errBadLocation
		}
		set["location"] = *upd.Location
	}

	filter := bson.M{"_id": id, "owner_id": owner, "status": models.StatusActive}
	l, err := s.casUpdate(ctx, filter, bson.M{"$set": set})
	if errors.Is(err, ErrNotFound) {
		return models.Listing{}, s.explain(ctx, id, func(cur models.Listing) error {
			if cur.OwnerID != owner {
				return ErrNotOwner
			}
			return ErrNotActive
		})
	}
	return l, err
}

// Delete removes a listing owned by owner unless it was already fulfilled.
func (s *Store) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"_id":      id,
		"owner_id": owner,
		"status":   bson.M{"$ne": models.StatusFulfilled},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 1 {
		return nil
	}
	return s.explain(ctx, id, func(cur models.Listing) error {
		if cur.OwnerID != owner {
			return ErrNotOwner
		}
		return ErrFulfilled
	})
}

// Remove deletes a listing regardless of owner or status and returns what
// was removed. Used for moderation.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) (models.Listing, error) {
	var l models.Listing
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Listing{}, ErrNotFound
		}
		return models.Listing{}, err
	}
	return l, nil
}

// DeleteByOwner removes every listing owned by owner.
func (s *Store) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"owner_id": owner})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ForgetRequester withdraws user from the requester list of every listing
// still open for requests.
func (s *Store) ForgetRequester(ctx context.Context, user primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.StatusActive, "requested_by": user},
		bson.M{
			"$pull": bson.M{"requested_by": user},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) casUpdate(ctx context.Context, filter bson.M, update any) (models.Listing, error) {
	var l models.Listing
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Listing{}, ErrNotFound
		}
		return models.Listing{}, err
	}
	return l, nil
}

// explain re-reads a listing after a conditional write matched nothing and
// maps its current state to the precise error.
func (s *Store) explain(ctx context.Context, id primitive.ObjectID, why func(models.Listing) error) error {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return why(cur)
}
