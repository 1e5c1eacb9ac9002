// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Active roles a user can toggle between.
const (
	RoleDonor    = "donor"
	RoleReceiver = "receiver"
)

// Auth providers.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Rank tiers. RankFor maps points onto these.
const (
	RankHelper   = "Helper"
	RankGuardian = "Guardian"
	RankHero     = "Hero"

	GuardianPoints = 200
	HeroPoints     = 500
)

// BloodGroups lists the accepted blood group values.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IsValidBloodGroup reports whether bg is one of BloodGroups.
func IsValidBloodGroup(bg string) bool {
	for _, g := range BloodGroups {
		if g == bg {
			return true
		}
	}
	return false
}

// IsValidRole reports whether role is an active role a user may hold.
func IsValidRole(role string) bool {
	return role == RoleDonor || role == RoleReceiver
}

// RankFor returns the rank tier for a point total.
func RankFor(points int) string {
	switch {
	case points >= HeroPoints:
		return RankHero
	case points >= GuardianPoints:
		return RankGuardian
	default:
		return RankHelper
	}
}

// User is an account in the directory. Reputation fields (points, rank,
// rating) only change when a listing the user participates in is fulfilled.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthProvider string             `bson:"auth_provider" json:"auth_provider"`
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`

	ActiveRole string    `bson:"active_role" json:"active_role"` // donor | receiver
	BloodGroup string    `bson:"blood_group,omitempty" json:"blood_group,omitempty"`
	Phone      string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string    `bson:"address,omitempty" json:"address,omitempty"`
	AvatarURL  string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Location   *GeoPoint `bson:"location,omitempty" json:"location,omitempty"`

	Points         int     `bson:"points" json:"points"`
	Rank           string  `bson:"rank" json:"rank"`
	Rating         float64 `bson:"rating" json:"rating"`
	RatingCount    int     `bson:"rating_count" json:"rating_count"`
	DonationsCount int     `bson:"donations_count" json:"donations_count"`

	PushToken    string `bson:"push_token,omitempty" json:"-"`     // Expo token (mobile)
	WebPushToken string `bson:"web_push_token,omitempty" json:"-"` // FCM registration token (browser)

	IsAdmin bool `bson:"is_admin" json:"is_admin"`

	ResetTokenHash string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetExpiresAt *time.Time `bson:"reset_expires_at,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the subset of a user shown to other users.
type PublicUser struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	AvatarURL      string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	ActiveRole     string             `bson:"active_role" json:"active_role"`
	BloodGroup     string             `bson:"blood_group,omitempty" json:"blood_group,omitempty"`
	Rank           string             `bson:"rank" json:"rank"`
	Rating         float64            `bson:"rating" json:"rating"`
	RatingCount    int                `bson:"rating_count" json:"rating_count"`
	DonationsCount int                `bson:"donations_count" json:"donations_count"`
	Points         int                `bson:"points" json:"points"`
}

// Public returns the user's public projection.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		AvatarURL:      u.AvatarURL,
		ActiveRole:     u.ActiveRole,
		BloodGroup:     u.BloodGroup,
		Rank:           u.Rank,
		Rating:         u.Rating,
		RatingCount:    u.RatingCount,
		DonationsCount: u.DonationsCount,
		Points:         u.Points,
	}
}

// Reputation awarded when a listing is fulfilled.
const (
	OwnerFulfillPoints    = 50
	ReceiverFulfillPoints = 20
)

// IsValidRating reports whether r is an accepted rating (1 to 5 stars).
func IsValidRating(r int) bool { return r >= 1 && r <= 5 }
