package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/normalize"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = apperr.NotFound("user not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = apperr.Conflict("user already exists")
	// ErrInvalidResetToken is returned for unknown or expired reset tokens.
	ErrInvalidResetToken = apperr.Validation("invalid or expired reset token")

	errBadRole       = apperr.Validation(`role must be "donor" or "receiver"`)
	errBadBloodGroup = apperr.Validation("invalid blood group")
	errBadLocation   = apperr.Validation("invalid coordinates")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (models.User, error) {
	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// Create inserts a new user after normalizing and validating fields.
// Reputation starts at zero with the lowest rank.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.ActiveRole == "" {
		u.ActiveRole = models.RoleDonor
	}
	if !models.IsValidRole(u.ActiveRole) {
		return models.User{}, errBadRole
	}
	if u.BloodGroup != "" && !models.IsValidBloodGroup(u.BloodGroup) {
		return models.User{}, errBadBloodGroup
	}
	if u.Location != nil && !u.Location.Valid() {
		return models.User{}, errBadLocation
	}
	if u.AuthProvider == "" {
		u.AuthProvider = models.ProviderLocal
	}
	u.Points = 0
	u.Rank = models.RankFor(0)
	u.Rating = 0
	u.RatingCount = 0
	u.DonationsCount = 0

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GoogleProfile is the identity returned by the Google userinfo endpoint.
type GoogleProfile struct {
	GoogleID  string
	Email     string
	Name      string
	AvatarURL string
}

// UpsertGoogle returns the user with the profile's email, creating one when
// none exists and linking the Google id otherwise.
func (s *Store) UpsertGoogle(ctx context.Context, p GoogleProfile) (models.User, bool, error) {
	email := normalize.Email(p.Email)
	existing, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		set := bson.M{"google_id": p.GoogleID, "updated_at": time.Now().UTC()}
		if existing.AvatarURL == "" && p.AvatarURL != "" {
			set["avatar_url"] = p.AvatarURL
		}
		u, err := s.findOneAndUpdate(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": set})
		return u, false, err
	case !errors.Is(err, ErrNotFound):
		return models.User{}, false, err
	}

	name := p.Name
	if name == "" {
		name = email
	}
	u, err := s.Create(ctx, models.User{
		Name:         name,
		Email:        email,
		AuthProvider: models.ProviderGoogle,
		GoogleID:     p.GoogleID,
		AvatarURL:    p.AvatarURL,
	})
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with a concurrent first login.
		u, err = s.GetByEmail(ctx, email)
		return u, false, err
	}
	return u, err == nil, err
}

// ProfileUpdate holds optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	Name       *string
	Phone      *string
	Address    *string
	BloodGroup *string
	AvatarURL  *string
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		if name == "" {
			return models.User{}, apperr.Validation("name is required")
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.AvatarURL != nil {
		set["avatar_url"] = *upd.AvatarURL
	}
	if upd.BloodGroup != nil {
		switch bg := normalize.BloodGroup(*upd.BloodGroup); {
		case *upd.BloodGroup == "":
			unset["blood_group"] = ""
		case bg == "":
			return models.User{}, errBadBloodGroup
		default:
			set["blood_group"] = bg
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

// ToggleRole flips the active role between donor and receiver in a single
// pipeline update and returns the updated user.
func (s *Store) ToggleRole(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"active_role": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$active_role", models.RoleDonor}},
				models.RoleReceiver,
				models.RoleDonor,
			}},
			"updated_at": "$$NOW",
		}}},
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, pipeline)
}

// SetActiveRole sets the active role.
func (s *Store) SetActiveRole(ctx context.Context, id primitive.ObjectID, role string) (models.User, error) {
	if !models.IsValidRole(role) {
		return models.User{}, errBadRole
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"active_role": role,
		"updated_at":  time.Now().UTC(),
	}})
}

// SetAdmin grants or revokes admin rights.
func (s *Store) SetAdmin(ctx context.Context, id primitive.ObjectID, isAdmin bool) (models.User, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_admin":   isAdmin,
		"updated_at": time.Now().UTC(),
	}})
}

// PromoteByEmail flags the user with email as an admin. changed is false
// when the user was already an admin.
func (s *Store) PromoteByEmail(ctx context.Context, email string) (u models.User, changed bool, err error) {
	u, err = s.GetByEmail(ctx, email)
	if err != nil || u.IsAdmin {
		return u, false, err
	}
	u, err = s.SetAdmin(ctx, u.ID, true)
	return u, err == nil, err
}

// UpdateLocation stores the user's current position.
func (s *Store) UpdateLocation(ctx context.Context, id primitive.ObjectID, p models.GeoPoint) (models.User, error) {
	if !p.Valid() {
		return models.User{}, errBadLocation
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"location":   p,
		"updated_at": time.Now().UTC(),
	}})
}

// Push token kinds.
const (
	TokenExpo = "expo"
	TokenWeb  = "web"
)

// SetPushToken stores a device token of the given kind. An empty token
// clears it.
func (s *Store) SetPushToken(ctx context.Context, id primitive.ObjectID, kind, token string) error {
	field := "push_token"
	switch kind {
	case TokenExpo, "":
	case TokenWeb:
		field = "web_push_token"
	default:
		return apperr.Validation(`token kind must be "expo" or "web"`)
	}

	update := bson.M{"$set": bson.M{field: token, "updated_at": time.Now().UTC()}}
	if token == "" {
		update = bson.M{"$unset": bson.M{field: ""}, "$set": bson.M{"updated_at": time.Now().UTC()}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores the hash of a password reset token.
func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reset_token_hash": hash,
		"reset_expires_at": expires.UTC(),
	}})
	return err
}

// ResetPassword replaces the password of the user holding an unexpired
// reset token and clears the token, in one conditional update.
func (s *Store) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (models.User, error) {
	u, err := s.findOneAndUpdate(ctx,
		bson.M{
			"reset_token_hash": tokenHash,
			"reset_expires_at": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$set":   bson.M{"password_hash": passwordHash, "updated_at": now.UTC()},
			"$unset": bson.M{"reset_token_hash": "", "reset_expires_at": ""},
		})
	if errors.Is(err, ErrNotFound) {
		return models.User{}, ErrInvalidResetToken
	}
	return u, err
}

// ClearExpiredResetTokens unsets reset tokens that expired before now.
func (s *Store) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"reset_expires_at": bson.M{"$lte": now.UTC()}},
		bson.M{"$unset": bson.M{"reset_token_hash": "", "reset_expires_at": ""}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes a user. It returns ErrNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PublicByIDs loads the public projection of each id that exists.
func (s *Store) PublicByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.PublicUser, error) {
	out := make(map[primitive.ObjectID]models.PublicUser, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(publicProjection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var p models.PublicUser
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, cur.Err()
}

var publicProjection = bson.M{
	"_id":             1,
	"name":            1,
	"avatar_url":      1,
	"active_role":     1,
	"blood_group":     1,
	"rank":            1,
	"rating":          1,
	"rating_count":    1,
	"donations_count": 1,
	"points":          1,
}

// ListFilter narrows List for the admin console.
type ListFilter struct {
	Query string // matched against folded name and email prefix
	Skip  int64
	Limit int64
}

// List returns users ordered by name, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Query != "" {
		q := text.Fold(f.Query)
		filter["$or"] = bson.A{
			bson.M{"name_ci": bson.M{"$regex": "^" + regexp.QuoteMeta(q)}},
			bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(normalize.Email(f.Query))}},
		}
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
