package listingstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	listingstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/listings"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/indexes"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewPIN(t *testing.T) {
	for i := 0; i < 50; i++ {
		pin, err := listingstore.NewPIN()
		if err != nil {
			t.Fatalf("NewPIN: %v", err)
		}
		if len(pin) != 4 || pin[0] == '0' {
			t.Fatalf("pin %q is not a 4-digit code", pin)
		}
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	receiver := primitive.NewObjectID()
	l, err := store.Create(ctx, models.Listing{
		OwnerID:     owner,
		Category:    models.CategoryBlood,
		Title:       "  Need O- urgently ",
		BloodGroup:  "o-",
		IsEmergency: true,
		Location:    models.NewGeoPoint(77.6, 12.9),
		Status:      models.StatusFulfilled, // ignored
		ReceiverID:  &receiver,              // ignored
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Status != models.StatusActive || l.ReceiverID != nil {
		t.Errorf("new listing must be active with no receiver: %s %v", l.Status, l.ReceiverID)
	}
	if l.ListingType != models.ListingDonation {
		t.Errorf("default type = %q", l.ListingType)
	}
	if len(l.PIN) != 4 {
		t.Errorf("pin = %q", l.PIN)
	}
	if l.Title != "Need O- urgently" || l.BloodGroup != "O-" || !l.IsEmergency {
		t.Errorf("fields not normalized: %+v", l)
	}

	got, err := store.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PIN != l.PIN || got.RequestedBy == nil {
		t.Errorf("stored listing = %+v", got)
	}

	food, err := store.Create(ctx, models.Listing{
		OwnerID:     owner,
		Category:    models.CategoryFood,
		Title:       "Rice",
		BloodGroup:  "A+",
		IsEmergency: true,
		Location:    models.NewGeoPoint(77.6, 12.9),
	})
	if err != nil {
		t.Fatalf("Create food: %v", err)
	}
	if food.BloodGroup != "" || food.IsEmergency {
		t.Error("only blood listings carry a blood group or emergency flag")
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ok := models.NewGeoPoint(77.6, 12.9)
	tests := []struct {
		name string
		l    models.Listing
	}{
		{"no title", models.Listing{Category: models.CategoryFood, Location: ok}},
		{"bad type", models.Listing{Title: "x", ListingType: "trade", Category: models.CategoryFood, Location: ok}},
		{"bad category", models.Listing{Title: "x", Category: "toys", Location: ok}},
		{"no location", models.Listing{Title: "x", Category: models.CategoryFood}},
		{"bad blood group", models.Listing{Title: "x", Category: models.CategoryBlood, BloodGroup: "C+", Location: ok}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.l); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestStore_Request(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	b := fx.CreateUser(ctx, "B", "b@example.com")
	l := fx.CreateListing(ctx, owner.ID, "Books")

	got, err := store.Request(ctx, l.ID, b.ID)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !got.HasRequested(b.ID) || len(got.RequestedBy) != 1 {
		t.Errorf("requested_by = %v", got.RequestedBy)
	}

	if _, err := store.Request(ctx, l.ID, b.ID); !errors.Is(err, listingstore.ErrAlreadyRequested) {
		t.Errorf("second request: %v", err)
	}
	if _, err := store.Request(ctx, l.ID, owner.ID); !errors.Is(err, listingstore.ErrOwnListing) {
		t.Errorf("own listing: %v", err)
	}
	if _, err := store.Request(ctx, primitive.NewObjectID(), b.ID); !errors.Is(err, listingstore.ErrNotFound) {
		t.Errorf("missing listing: %v", err)
	}

	after, _ := store.GetByID(ctx, l.ID)
	if len(after.RequestedBy) != 1 || after.Status != models.StatusActive {
		t.Errorf("failed requests must not mutate: %+v", after)
	}
}

func TestStore_Approve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	b := fx.CreateUser(ctx, "B", "b@example.com")
	c := fx.CreateUser(ctx, "C", "c@example.com")
	l := fx.CreateListing(ctx, owner.ID, "Coat", testutil.RequestedBy(b.ID))

	if _, err := store.Approve(ctx, l.ID, owner.ID, c.ID); !errors.Is(err, listingstore.ErrNotRequester) {
		t.Errorf("non-requester: %v", err)
	}
	if _, err := store.Approve(ctx, l.ID, c.ID, b.ID); !errors.Is(err, listingstore.ErrNotOwner) {
		t.Errorf("non-owner: %v", err)
	}
	unchanged, _ := store.GetByID(ctx, l.ID)
	if unchanged.Status != models.StatusActive || unchanged.ReceiverID != nil || len(unchanged.RequestedBy) != 1 {
		t.Fatalf("failed approvals must not mutate: %+v", unchanged)
	}

	got, err := store.Approve(ctx, l.ID, owner.ID, b.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.Status != models.StatusPending || got.ReceiverID == nil || *got.ReceiverID != b.ID {
		t.Errorf("approved listing = %+v", got)
	}

	if _, err := store.Approve(ctx, l.ID, owner.ID, b.ID); !errors.Is(err, listingstore.ErrNotActive) {
		t.Errorf("approve twice: %v", err)
	}
	if _, err := store.Request(ctx, l.ID, c.ID); !errors.Is(err, listingstore.ErrNotActive) {
		t.Errorf("request on pending: %v", err)
	}
}

func TestStore_Approve_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	b := fx.CreateUser(ctx, "B", "b@example.com")
	c := fx.CreateUser(ctx, "C", "c@example.com")
	l := fx.CreateListing(ctx, owner.ID, "Coat", testutil.RequestedBy(b.ID, c.ID))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, r := range []primitive.ObjectID{b.ID, c.ID} {
		wg.Add(1)
		go func(i int, r primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = store.Approve(ctx, l.ID, owner.ID, r)
		}(i, r)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, listingstore.ErrNotActive):
			t.Errorf("loser got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}

	got, _ := store.GetByID(ctx, l.ID)
	if got.Status != models.StatusPending || got.ReceiverID == nil {
		t.Fatalf("listing = %+v", got)
	}
	winner := b.ID
	if errs[0] != nil {
		winner = c.ID
	}
	if *got.ReceiverID != winner {
		t.Errorf("receiver = %s, want %s", got.ReceiverID.Hex(), winner.Hex())
	}
}

// Owner A lists with PIN 4821, B requests, A approves B, C is rejected, and a
// wrong PIN leaves the listing pending.
func TestStore_FulfillScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "A", "a@example.com")
	b := fx.CreateUser(ctx, "B", "b@example.com")
	c := fx.CreateUser(ctx, "C", "c@example.com")
	l := fx.CreateListing(ctx, a.ID, "Blanket", testutil.WithPIN("4821"))

	if _, err := store.Request(ctx, l.ID, b.ID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := store.Fulfill(ctx, l.ID, a.ID, "4821"); !errors.Is(err, listingstore.ErrNotPending) {
		t.Errorf("fulfill before approve: %v", err)
	}
	if _, err := store.Approve(ctx, l.ID, a.ID, b.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := store.Request(ctx, l.ID, c.ID); !errors.Is(err, listingstore.ErrNotActive) {
		t.Errorf("C request: %v", err)
	}

	if _, err := store.Fulfill(ctx, l.ID, a.ID, "1111"); !errors.Is(err, listingstore.ErrWrongPIN) {
		t.Errorf("wrong pin: %v", err)
	}
	if _, err := store.Fulfill(ctx, l.ID, b.ID, "4821"); !errors.Is(err, listingstore.ErrNotOwner) {
		t.Errorf("receiver fulfilling: %v", err)
	}
	still, _ := store.GetByID(ctx, l.ID)
	if still.Status != models.StatusPending {
		t.Fatalf("status after wrong pin = %q", still.Status)
	}

	done, err := store.Fulfill(ctx, l.ID, a.ID, "4821")
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if done.Status != models.StatusFulfilled || done.FulfilledAt == nil || *done.ReceiverID != b.ID {
		t.Errorf("fulfilled listing = %+v", done)
	}
	if err := store.Delete(ctx, l.ID, a.ID); !errors.Is(err, listingstore.ErrFulfilled) {
		t.Errorf("delete fulfilled: %v", err)
	}
}

func TestStore_AcceptSOS_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Patient", "patient@example.com")
	d1 := fx.CreateUser(ctx, "D1", "d1@example.com")
	d2 := fx.CreateUser(ctx, "D2", "d2@example.com")
	l := fx.CreateListing(ctx, owner.ID, "O+ needed", testutil.AsEmergency())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, d := range []primitive.ObjectID{d1.ID, d2.ID} {
		wg.Add(1)
		go func(i int, d primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = store.AcceptSOS(ctx, l.ID, d)
		}(i, d)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, listingstore.ErrAlreadyAccepted):
			t.Errorf("loser got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}

	got, _ := store.GetByID(ctx, l.ID)
	if got.Status != models.StatusPending || got.ReceiverID == nil {
		t.Fatalf("listing = %+v", got)
	}
	if *got.ReceiverID != d1.ID && *got.ReceiverID != d2.ID {
		t.Errorf("receiver %s is neither donor", got.ReceiverID.Hex())
	}
}

func TestStore_AcceptSOS_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	helper := fx.CreateUser(ctx, "Helper", "helper@example.com")
	plain := fx.CreateListing(ctx, owner.ID, "Rice")
	sos := fx.CreateListing(ctx, owner.ID, "Blood", testutil.AsEmergency())

	if _, err := store.AcceptSOS(ctx, plain.ID, helper.ID); !errors.Is(err, listingstore.ErrNotEmergency) {
		t.Errorf("plain listing: %v", err)
	}
	if _, err := store.AcceptSOS(ctx, sos.ID, owner.ID); !errors.Is(err, listingstore.ErrOwnListing) {
		t.Errorf("owner accepting: %v", err)
	}
	if _, err := store.AcceptSOS(ctx, primitive.NewObjectID(), helper.ID); !errors.Is(err, listingstore.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	other := fx.CreateUser(ctx, "Other", "other@example.com")
	l := fx.CreateListing(ctx, owner.ID, "Old title")
	pending := fx.CreateListing(ctx, owner.ID, "Pending", testutil.WithStatus(models.StatusPending, &other.ID))

	title := "New title"
	got, err := store.Update(ctx, l.ID, owner.ID, listingstore.Update{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "New title" {
		t.Errorf("title = %q", got.Title)
	}
	if _, err := store.Update(ctx, l.ID, other.ID, listingstore.Update{Title: &title}); !errors.Is(err, listingstore.ErrNotOwner) {
		t.Errorf("non-owner update: %v", err)
	}
	if _, err := store.Update(ctx, pending.ID, owner.ID, listingstore.Update{Title: &title}); !errors.Is(err, listingstore.ErrNotActive) {
		t.Errorf("pending update: %v", err)
	}

	if err := store.Delete(ctx, l.ID, other.ID); !errors.Is(err, listingstore.ErrNotOwner) {
		t.Errorf("non-owner delete: %v", err)
	}
	if err := store.Delete(ctx, pending.ID, owner.ID); err != nil {
		t.Errorf("pending delete: %v", err)
	}
	if err := store.Delete(ctx, pending.ID, owner.ID); !errors.Is(err, listingstore.ErrNotFound) {
		t.Errorf("delete twice: %v", err)
	}

	removed, err := store.Remove(ctx, l.ID)
	if err != nil || removed.ID != l.ID {
		t.Errorf("Remove: %v", err)
	}
}

func TestStore_DeleteByOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	other := fx.CreateUser(ctx, "Other", "other@example.com")
	fx.CreateListing(ctx, owner.ID, "One")
	fx.CreateListing(ctx, owner.ID, "Two")
	keep := fx.CreateListing(ctx, other.ID, "Keep")

	n, err := store.DeleteByOwner(ctx, owner.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByOwner = %d, %v", n, err)
	}
	if _, err := store.GetByID(ctx, keep.ID); err != nil {
		t.Errorf("other owner's listing removed: %v", err)
	}
}

func TestStore_ForgetRequester(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	gone := fx.CreateUser(ctx, "Gone", "gone@example.com")
	stay := fx.CreateUser(ctx, "Stay", "stay@example.com")
	asked := fx.CreateListing(ctx, owner.ID, "Rice", testutil.RequestedBy(gone.ID, stay.ID))
	untouched := fx.CreateListing(ctx, owner.ID, "Dal", testutil.RequestedBy(stay.ID))

	n, err := store.ForgetRequester(ctx, gone.ID)
	if err != nil {
		t.Fatalf("ForgetRequester: %v", err)
	}
	if n != 1 {
		t.Errorf("modified = %d, want 1", n)
	}
	got, _ := store.GetByID(ctx, asked.ID)
	if len(got.RequestedBy) != 1 || got.RequestedBy[0] != stay.ID {
		t.Errorf("requested_by = %v", got.RequestedBy)
	}
	got, _ = store.GetByID(ctx, untouched.ID)
	if len(got.RequestedBy) != 1 {
		t.Errorf("other listing requested_by = %v", got.RequestedBy)
	}
}

func TestStore_Feed_Near(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	recv := primitive.NewObjectID()
	far := fx.CreateListing(ctx, owner.ID, "2km", testutil.ListingAt(77.5946, 12.9896))
	near := fx.CreateListing(ctx, owner.ID, "300m", testutil.ListingAt(77.5946, 12.9743))
	mid := fx.CreateListing(ctx, owner.ID, "1km", testutil.ListingAt(77.5946, 12.9806), testutil.WithCategory(models.CategoryBooks))
	fx.CreateListing(ctx, owner.ID, "50km", testutil.ListingAt(77.5946, 13.4216))
	fx.CreateListing(ctx, owner.ID, "pending", testutil.ListingAt(77.5946, 12.9720), testutil.WithStatus(models.StatusPending, &recv))

	centre := models.NewGeoPoint(77.5946, 12.9716)
	got, total, err := store.Feed(ctx, listingstore.FeedQuery{Near: &centre, RadiusKm: 5, Limit: 10})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("total=%d len=%d, want 3 and 3", total, len(got))
	}
	want := []primitive.ObjectID{near.ID, mid.ID, far.ID}
	for i, l := range got {
		if l.ID != want[i] {
			t.Errorf("position %d = %q, want ascending distance", i, l.Title)
		}
	}

	got, total, err = store.Feed(ctx, listingstore.FeedQuery{Near: &centre, RadiusKm: 5, Skip: 1, Limit: 1})
	if err != nil {
		t.Fatalf("Feed page 2: %v", err)
	}
	if total != 3 || len(got) != 1 || got[0].ID != mid.ID {
		t.Errorf("page 2 = %d items (total %d)", len(got), total)
	}

	got, total, _ = store.Feed(ctx, listingstore.FeedQuery{Near: &centre, RadiusKm: 5, Category: models.CategoryBooks, Limit: 10})
	if total != 1 || len(got) != 1 || got[0].ID != mid.ID {
		t.Errorf("category filter: %d items (total %d)", len(got), total)
	}
}

func TestStore_Feed_NoLocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	base := time.Now().UTC().Add(-time.Hour)
	old := fx.CreateListing(ctx, owner.ID, "old", testutil.CreatedAt(base))
	mid := fx.CreateListing(ctx, owner.ID, "mid", testutil.CreatedAt(base.Add(10*time.Minute)), testutil.AsRequest())
	newest := fx.CreateListing(ctx, owner.ID, "new", testutil.CreatedAt(base.Add(20*time.Minute)))

	got, total, err := store.Feed(ctx, listingstore.FeedQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if total != 3 || len(got) != 2 || got[0].ID != newest.ID || got[1].ID != mid.ID {
		t.Errorf("newest first: total=%d %v", total, got)
	}

	got, _, _ = store.Feed(ctx, listingstore.FeedQuery{Skip: 2, Limit: 2})
	if len(got) != 1 || got[0].ID != old.ID {
		t.Errorf("second page = %v", got)
	}

	got, total, _ = store.Feed(ctx, listingstore.FeedQuery{ListingType: models.ListingRequest, Limit: 10})
	if total != 1 || got[0].ID != mid.ID {
		t.Errorf("type filter: total=%d", total)
	}
}

func TestStore_MineAndRequested(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	user := fx.CreateUser(ctx, "User", "user@example.com")
	fx.CreateListing(ctx, owner.ID, "a", testutil.RequestedBy(user.ID))
	fx.CreateListing(ctx, owner.ID, "b", testutil.WithStatus(models.StatusPending, &user.ID))
	fx.CreateListing(ctx, owner.ID, "c")
	fx.CreateListing(ctx, user.ID, "mine")

	mine, err := store.Mine(ctx, owner.ID)
	if err != nil || len(mine) != 3 {
		t.Errorf("Mine = %d, %v", len(mine), err)
	}
	req, err := store.Requested(ctx, user.ID)
	if err != nil || len(req) != 2 {
		t.Errorf("Requested = %d, %v", len(req), err)
	}

	all, total, err := store.List(ctx, listingstore.ListFilter{Status: models.StatusActive, Limit: 10})
	if err != nil || total != 3 || len(all) != 3 {
		t.Errorf("List(active) = %d/%d, %v", len(all), total, err)
	}
}

func TestStore_Titles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := listingstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	a := fx.CreateListing(ctx, owner, "Rice")
	b := fx.CreateListing(ctx, owner, "Coats")
	gone := primitive.NewObjectID()

	titles, err := store.Titles(ctx, []primitive.ObjectID{a.ID, b.ID, gone})
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(titles) != 2 || titles[a.ID] != "Rice" || titles[b.ID] != "Coats" {
		t.Fatalf("titles = %v", titles)
	}

	empty, err := store.Titles(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("Titles(nil) = %v, %v", empty, err)
	}
}
