package metricsstore

import (
	"context"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TrailingDays is the window of the daily new-user series.
const TrailingDays = 30

// Stats is the set of totals shown on the admin dashboard.
type Stats struct {
	Users     int64 `json:"users"`
	Donors    int64 `json:"donors"`
	Receivers int64 `json:"receivers"`
	Admins    int64 `json:"admins"`

	Listings  int64 `json:"listings"`
	Active    int64 `json:"active"`
	Pending   int64 `json:"pending"`
	Fulfilled int64 `json:"fulfilled"`
	Emergency int64 `json:"emergency"`
	Donations int64 `json:"donations"`
	Requests  int64 `json:"requests"`

	Blasts      int64 `json:"blasts"`
	Messages    int64 `json:"messages"`
	TotalPoints int64 `json:"total_points"`

	NewUsers []DayCount `json:"new_users"`
}

// DayCount is the number of users created on one UTC day.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// FetchStats returns the dashboard totals as of now.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchStats(ctx context.Context, db *mongo.Database, now time.Time) Stats {
	var out Stats

	count := func(coll string, filter bson.M) int64 {
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return 0
		}
		return n
	}

	// users
	out.Users = count("users", bson.M{})
	out.Donors = count("users", bson.M{"active_role": models.RoleDonor})
	out.Receivers = count("users", bson.M{"active_role": models.RoleReceiver})
	out.Admins = count("users", bson.M{"is_admin": true})

	// listings
	out.Listings = count("listings", bson.M{})
	out.Active = count("listings", bson.M{"status": models.StatusActive})
	out.Pending = count("listings", bson.M{"status": models.StatusPending})
	out.Fulfilled = count("listings", bson.M{"status": models.StatusFulfilled})
	out.Emergency = count("listings", bson.M{"is_emergency": true})
	out.Donations = count("listings", bson.M{"listing_type": models.ListingDonation})
	out.Requests = count("listings", bson.M{"listing_type": models.ListingRequest})

	out.Blasts = count("emergency_blasts", bson.M{})
	out.Messages = count("messages", bson.M{})

	if n, err := sumPoints(ctx, db); err == nil {
		out.TotalPoints = n
	}

	days, err := newUsersByDay(ctx, db, now)
	if err != nil {
		days = map[string]int64{}
	}
	out.NewUsers = FillDays(now, TrailingDays, days)

	return out
}

func sumPoints(ctx context.Context, db *mongo.Database) (int64, error) {
	cur, err := db.Collection("users").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$points"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// windowStart is midnight UTC of the first day in the trailing window.
func windowStart(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
}

func newUsersByDay(ctx context.Context, db *mongo.Database, now time.Time) (map[string]int64, error) {
	cur, err := db.Collection("users").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": windowStart(now, TrailingDays)}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Day   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Day] = r.Count
	}
	return out, nil
}

// FillDays expands per-day counts into a dense series of days entries
// ending today (UTC), oldest first, with missing days set to zero.
func FillDays(now time.Time, days int, counts map[string]int64) []DayCount {
	start := windowStart(now, days)
	out := make([]DayCount, 0, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}
