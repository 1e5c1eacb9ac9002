// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("listings", listingsSchema())
	ensure("messages", messagesSchema())
	ensure("emergency_blasts", blastsSchema())
	ensure("events", eventsSchema())

	// No validator; the collection still has to exist for its indexes.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// nonBlank matches a string with at least one non-space character.
var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values ...string) bson.M {
	a := bson.A{}
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func geoPointSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"type", "coordinates"},
		"properties": bson.M{
			"type":        bson.M{"enum": bson.A{"Point"}},
			"coordinates": bson.M{"bsonType": "array", "minItems": 2, "maxItems": 2},
		},
	}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "email", "auth_provider", "active_role", "rank"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       nonBlank,
				"email":         nonBlank,
				"auth_provider": enum(models.ProviderLocal, models.ProviderGoogle),
				"active_role":   enum(models.RoleDonor, models.RoleReceiver),
				"rank":          enum(models.RankHelper, models.RankGuardian, models.RankHero),
				"blood_group":   enum(models.BloodGroups...),
				"points":        bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"rating":        bson.M{"bsonType": "double", "minimum": 0, "maximum": 5},
				"is_admin":      bson.M{"bsonType": "bool"},
				"location":      geoPointSchema(),
			},
		},
	}
}

func listingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"owner_id", "listing_type", "category", "title", "pin", "location", "status"},
			"properties": bson.M{
				"owner_id":     bson.M{"bsonType": "objectId"},
				"listing_type": enum(models.ListingDonation, models.ListingRequest),
				"category":     enum(models.CategoryFood, models.CategoryClothes, models.CategoryBooks, models.CategoryBlood, models.CategoryOther),
				"title":        nonBlank,
				"pin":          bson.M{"bsonType": "string", "pattern": "^[0-9]{4}$"},
				"location":     geoPointSchema(),
				"status":       enum(models.StatusActive, models.StatusPending, models.StatusFulfilled),
				"is_emergency": bson.M{"bsonType": "bool"},
				"receiver_id":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"sender_id", "receiver_id", "listing_id", "content", "created_at"},
			"properties": bson.M{
				"sender_id":   bson.M{"bsonType": "objectId"},
				"receiver_id": bson.M{"bsonType": "objectId"},
				"listing_id":  bson.M{"bsonType": "objectId"},
				"content":     nonBlank,
				"read":        bson.M{"bsonType": "bool"},
				"created_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}

func blastsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"requester_id", "message", "location", "radius_km"},
			"properties": bson.M{
				"requester_id": bson.M{"bsonType": "objectId"},
				"message":      nonBlank,
				"blood_group":  enum(models.BloodGroups...),
				"location":     geoPointSchema(),
				"radius_km":    bson.M{"bsonType": "double", "exclusiveMinimum": 0},
			},
		},
	}
}

func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "date", "expire_at", "created_by"},
			"properties": bson.M{
				"title":      nonBlank,
				"date":       bson.M{"bsonType": "date"},
				"expire_at":  bson.M{"bsonType": "date"},
				"created_by": bson.M{"bsonType": "objectId"},
				"location":   geoPointSchema(),
			},
		},
	}
}
