package userstore_test

import (
	"errors"
	"math"
	"testing"
	"time"

	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/indexes"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	created, err := store.Create(ctx, models.User{
		Name:         "  Asha   Rao ",
		Email:        "Asha@Example.com",
		PasswordHash: "hash",
		Points:       999, // ignored
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "Asha Rao" || created.NameCI == "" {
		t.Errorf("name not normalized: %q / %q", created.Name, created.NameCI)
	}
	if created.Email != "asha@example.com" {
		t.Errorf("email not normalized: %q", created.Email)
	}
	if created.ActiveRole != models.RoleDonor {
		t.Errorf("default role = %q", created.ActiveRole)
	}
	if created.Points != 0 || created.Rank != models.RankHelper {
		t.Errorf("reputation should start empty: points=%d rank=%q", created.Points, created.Rank)
	}

	_, err = store.Create(ctx, models.User{Name: "Other", Email: "asha@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bad := models.NewGeoPoint(500, 0)
	tests := []struct {
		name string
		user models.User
	}{
		{"bad role", models.User{Name: "A", Email: "a@x.io", ActiveRole: "admin"}},
		{"bad blood group", models.User{Name: "B", Email: "b@x.io", BloodGroup: "Z+"}},
		{"bad location", models.User{Name: "C", Email: "c@x.io", Location: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.user); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ToggleRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Toggle", "toggle@example.com")

	got, err := store.ToggleRole(ctx, u.ID)
	if err != nil {
		t.Fatalf("ToggleRole: %v", err)
	}
	if got.ActiveRole != models.RoleReceiver {
		t.Errorf("after first toggle: %q", got.ActiveRole)
	}
	got, _ = store.ToggleRole(ctx, u.ID)
	if got.ActiveRole != models.RoleDonor {
		t.Errorf("after second toggle: %q", got.ActiveRole)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Before", "profile@example.com", testutil.WithBloodGroup("A+"))

	name, phone, bg := "After", "555-0101", "o -"
	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Name: &name, Phone: &phone, BloodGroup: &bg})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "After" || got.Phone != "555-0101" || got.BloodGroup != "O-" {
		t.Errorf("got %+v", got)
	}

	bad := "Q+"
	if _, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{BloodGroup: &bad}); err == nil {
		t.Error("invalid blood group should be rejected")
	}

	empty := ""
	got, err = store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{BloodGroup: &empty})
	if err != nil || got.BloodGroup != "" {
		t.Errorf("clearing blood group: %q, %v", got.BloodGroup, err)
	}
}

func TestStore_ResetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Reset", "reset@example.com")
	now := time.Now()

	if err := store.SetResetToken(ctx, u.ID, "tokhash", now.Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	if _, err := store.ResetPassword(ctx, "wrong", "newhash", now); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("wrong token: got %v", err)
	}
	if _, err := store.ResetPassword(ctx, "tokhash", "newhash", now.Add(2*time.Hour)); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Errorf("expired token: got %v", err)
	}

	got, err := store.ResetPassword(ctx, "tokhash", "newhash", now)
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if got.PasswordHash != "newhash" || got.ResetTokenHash != "" || got.ResetExpiresAt != nil {
		t.Errorf("reset not applied cleanly: %+v", got)
	}
	if _, err := store.ResetPassword(ctx, "tokhash", "again", now); !errors.Is(err, userstore.ErrInvalidResetToken) {
		t.Error("a token must only work once")
	}
}

func TestStore_ClearExpiredResetTokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	stale := fx.CreateUser(ctx, "Stale", "stale@example.com")
	fresh := fx.CreateUser(ctx, "Fresh", "fresh@example.com")
	store.SetResetToken(ctx, stale.ID, "old", now.Add(-time.Minute))
	store.SetResetToken(ctx, fresh.ID, "new", now.Add(time.Hour))

	n, err := store.ClearExpiredResetTokens(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("ClearExpiredResetTokens = %d, %v", n, err)
	}
	if u, _ := store.GetByID(ctx, stale.ID); u.ResetTokenHash != "" || u.ResetExpiresAt != nil {
		t.Errorf("stale token kept: %+v", u)
	}
	if u, _ := store.GetByID(ctx, fresh.ID); u.ResetTokenHash != "new" {
		t.Errorf("fresh token cleared")
	}
}

func TestStore_AwardOwner_RecomputesRank(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Owner", "owner@example.com", testutil.WithPoints(180))

	if err := store.AwardOwner(ctx, u.ID); err != nil {
		t.Fatalf("AwardOwner: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.Points != 230 {
		t.Errorf("points = %d, want 230", got.Points)
	}
	if got.DonationsCount != 1 {
		t.Errorf("donations = %d, want 1", got.DonationsCount)
	}
	if got.Rank != models.RankGuardian {
		t.Errorf("rank = %q, want %q", got.Rank, models.RankGuardian)
	}
}

func TestStore_AwardReceiver_Rating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fresh := fx.CreateUser(ctx, "Fresh", "fresh@example.com")
	rated := fx.CreateUser(ctx, "Rated", "rated@example.com", testutil.WithRating(5, 2))

	if err := store.AwardReceiver(ctx, fresh.ID, 4); err != nil {
		t.Fatalf("AwardReceiver: %v", err)
	}
	got, _ := store.GetByID(ctx, fresh.ID)
	if got.Points != 20 || got.Rating != 4 || got.RatingCount != 1 {
		t.Errorf("fresh receiver: points=%d rating=%v count=%d", got.Points, got.Rating, got.RatingCount)
	}

	if err := store.AwardReceiver(ctx, rated.ID, 2); err != nil {
		t.Fatalf("AwardReceiver: %v", err)
	}
	got, _ = store.GetByID(ctx, rated.ID)
	if math.Abs(got.Rating-4) > 1e-9 || got.RatingCount != 3 {
		t.Errorf("rated receiver: rating=%v count=%d, want 4 and 3", got.Rating, got.RatingCount)
	}

	if err := store.AwardReceiver(ctx, rated.ID, 0); err != nil {
		t.Fatalf("AwardReceiver without rating: %v", err)
	}
	got, _ = store.GetByID(ctx, rated.ID)
	if got.RatingCount != 3 || got.Points != 20 {
		t.Errorf("no rating should change nothing: count=%d points=%d", got.RatingCount, got.Points)
	}

	if err := store.AwardReceiver(ctx, primitive.NewObjectID(), 5); err != nil {
		t.Errorf("missing receiver: %v", err)
	}
}

func TestStore_NearbyDonors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	// Bengaluru centre; 0.01 degrees of latitude is about 1.1 km.
	me := fx.CreateUser(ctx, "Me", "me@example.com", testutil.At(77.5946, 12.9716))
	near := fx.CreateUser(ctx, "Near", "near@example.com", testutil.At(77.5946, 12.9816), testutil.WithBloodGroup("O+"))
	nearer := fx.CreateUser(ctx, "Nearer", "nearer@example.com", testutil.At(77.5946, 12.9746), testutil.WithBloodGroup("A+"))
	fx.CreateUser(ctx, "Far", "far@example.com", testutil.At(77.5946, 13.5), testutil.WithBloodGroup("O+"))
	fx.CreateUser(ctx, "Receiver", "recv@example.com", testutil.At(77.5946, 12.9726), testutil.AsReceiver())

	got, err := store.NearbyDonors(ctx, userstore.NearbyQuery{
		Point:     models.NewGeoPoint(77.5946, 12.9716),
		RadiusKm:  5,
		ExcludeID: me.ID,
	})
	if err != nil {
		t.Fatalf("NearbyDonors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d donors, want 2", len(got))
	}
	if got[0].ID != nearer.ID || got[1].ID != near.ID {
		t.Errorf("not sorted by distance: %s, %s", got[0].Name, got[1].Name)
	}

	got, err = store.NearbyDonors(ctx, userstore.NearbyQuery{
		Point:      models.NewGeoPoint(77.5946, 12.9716),
		RadiusKm:   5,
		BloodGroup: "O+",
		ExcludeID:  me.ID,
	})
	if err != nil {
		t.Fatalf("NearbyDonors: %v", err)
	}
	if len(got) != 1 || got[0].ID != near.ID {
		t.Errorf("blood group filter: got %v", got)
	}
}

func TestWithDeviceTokens(t *testing.T) {
	users := []models.User{
		{Name: "expo", PushToken: "ExponentPushToken[a]"},
		{Name: "none"},
		{Name: "web", WebPushToken: "fcm-token"},
	}
	got := userstore.WithDeviceTokens(users)
	if len(got) != 2 || got[0].Name != "expo" || got[1].Name != "web" {
		t.Errorf("got %v", got)
	}
	if len(users) != 3 || users[1].Name != "none" {
		t.Error("input slice must not be modified")
	}
}

func TestStore_PublicByIDsAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "Alpha", "alpha@example.com")
	b := fx.CreateUser(ctx, "Beta", "beta@example.com")
	fx.CreateUser(ctx, "Gamma", "gamma@example.com")

	pub, err := store.PublicByIDs(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("PublicByIDs: %v", err)
	}
	if len(pub) != 2 || pub[a.ID].Name != "Alpha" {
		t.Errorf("PublicByIDs = %v", pub)
	}

	users, total, err := store.List(ctx, userstore.ListFilter{Query: "be", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].ID != b.ID {
		t.Errorf("List(be) = %d users, total %d", len(users), total)
	}

	users, total, _ = store.List(ctx, userstore.ListFilter{Limit: 2})
	if total != 3 || len(users) != 2 || users[0].Name != "Alpha" {
		t.Errorf("List() = %d users, total %d", len(users), total)
	}
}

func TestStore_PromoteByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "Boss", "boss@example.com")

	u, changed, err := store.PromoteByEmail(ctx, "BOSS@example.com")
	if err != nil || !changed || !u.IsAdmin {
		t.Fatalf("first promote: %+v changed=%v err=%v", u, changed, err)
	}
	_, changed, err = store.PromoteByEmail(ctx, "boss@example.com")
	if err != nil || changed {
		t.Errorf("second promote should be a no-op: changed=%v err=%v", changed, err)
	}
	if _, _, err := store.PromoteByEmail(ctx, "nobody@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("unknown email: %v", err)
	}
}

func TestStore_SetPushToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Phone", "phone@example.com")

	if err := store.SetPushToken(ctx, u.ID, userstore.TokenExpo, "ExponentPushToken[x]"); err != nil {
		t.Fatalf("expo: %v", err)
	}
	if err := store.SetPushToken(ctx, u.ID, userstore.TokenWeb, "fcm-abc"); err != nil {
		t.Fatalf("web: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.PushToken != "ExponentPushToken[x]" || got.WebPushToken != "fcm-abc" {
		t.Errorf("tokens = %q / %q", got.PushToken, got.WebPushToken)
	}

	if err := store.SetPushToken(ctx, u.ID, "sms", "x"); err == nil {
		t.Error("unknown kind should be rejected")
	}
	if err := store.SetPushToken(ctx, primitive.NewObjectID(), userstore.TokenExpo, "x"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("unknown user: %v", err)
	}
}
