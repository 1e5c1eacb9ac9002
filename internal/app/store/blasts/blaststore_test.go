package blaststore_test

import (
	"errors"
	"testing"

	blaststore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/blasts"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newBlast(requester primitive.ObjectID) models.EmergencyBlast {
	return models.EmergencyBlast{
		RequesterID: requester,
		Message:     "Need B+ at City Hospital",
		BloodGroup:  "B+",
		Location:    models.NewGeoPoint(77.59, 12.97),
		RadiusKm:    20,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := blaststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := primitive.NewObjectID()
	b, err := store.Create(ctx, newBlast(requester))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.SetNotified(ctx, b.ID, 7); err != nil {
		t.Fatalf("SetNotified: %v", err)
	}

	got, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NotifiedCount != 7 || got.Responders == nil || got.BloodGroup != "B+" {
		t.Errorf("got %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, blaststore.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}

	bad := newBlast(requester)
	bad.Location = models.GeoPoint{}
	if _, err := store.Create(ctx, bad); err == nil {
		t.Error("blast without a location should be rejected")
	}
}

func TestStore_Respond_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := blaststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := primitive.NewObjectID()
	donor := primitive.NewObjectID()
	b, _ := store.Create(ctx, newBlast(requester))

	got, added, err := store.Respond(ctx, b.ID, donor)
	if err != nil || !added {
		t.Fatalf("first response: added=%v err=%v", added, err)
	}
	if len(got.Responders) != 1 || got.Responders[0].DonorID != donor || got.Responders[0].Status != models.ResponderAccepted {
		t.Errorf("responders = %+v", got.Responders)
	}

	got, added, err = store.Respond(ctx, b.ID, donor)
	if err != nil || added {
		t.Fatalf("second response: added=%v err=%v", added, err)
	}
	if len(got.Responders) != 1 {
		t.Errorf("responders after repeat = %d, want 1", len(got.Responders))
	}

	if _, _, err := store.Respond(ctx, b.ID, requester); !errors.Is(err, blaststore.ErrOwnBlast) {
		t.Errorf("own blast: %v", err)
	}
	if _, _, err := store.Respond(ctx, primitive.NewObjectID(), donor); !errors.Is(err, blaststore.ErrNotFound) {
		t.Errorf("missing blast: %v", err)
	}
}

func TestStore_ByRequester(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := blaststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := primitive.NewObjectID()
	store.Create(ctx, newBlast(me))
	store.Create(ctx, newBlast(me))
	store.Create(ctx, newBlast(primitive.NewObjectID()))

	got, err := store.ByRequester(ctx, me)
	if err != nil || len(got) != 2 {
		t.Errorf("ByRequester = %d, %v", len(got), err)
	}
}
