package messagestore_test

import (
	"errors"
	"testing"
	"time"

	messagestore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/messages"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b, l := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	m, err := store.Create(ctx, models.Message{SenderID: a, ReceiverID: b, ListingID: l, Content: "hi", Read: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID.IsZero() || m.Read || m.CreatedAt.IsZero() {
		t.Errorf("created = %+v", m)
	}

	if _, err := store.Create(ctx, models.Message{SenderID: a, ReceiverID: a, ListingID: l, Content: "x"}); !errors.Is(err, messagestore.ErrSelf) {
		t.Errorf("self message: %v", err)
	}
	if _, err := store.Create(ctx, models.Message{SenderID: a, ReceiverID: b, ListingID: l, Content: "  "}); !errors.Is(err, messagestore.ErrEmpty) {
		t.Errorf("empty message: %v", err)
	}
}

func TestStore_ThreadMarkReadUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me, bob, cara := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	l := primitive.NewObjectID()
	t0 := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	fx.CreateMessage(ctx, bob, me, l, "one", t0)
	fx.CreateMessage(ctx, me, bob, l, "two", t0.Add(time.Minute))
	fx.CreateMessage(ctx, bob, me, l, "three", t0.Add(2*time.Minute))
	fx.CreateMessage(ctx, cara, me, l, "other thread", t0.Add(3*time.Minute))
	fx.CreateMessage(ctx, bob, me, primitive.NewObjectID(), "other listing", t0.Add(4*time.Minute))

	thread, err := store.Thread(ctx, l, me, bob)
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(thread) != 3 || thread[0].Content != "one" || thread[2].Content != "three" {
		t.Fatalf("thread = %v", thread)
	}

	n, _ := store.UnreadCount(ctx, me)
	if n != 4 {
		t.Errorf("unread before = %d, want 4", n)
	}
	changed, err := store.MarkRead(ctx, l, me, bob)
	if err != nil || changed != 2 {
		t.Errorf("MarkRead = %d, %v", changed, err)
	}
	n, _ = store.UnreadCount(ctx, me)
	if n != 2 {
		t.Errorf("unread after = %d, want 2", n)
	}
	if n, _ := store.UnreadCount(ctx, bob); n != 1 {
		t.Errorf("bob unread = %d, want 1", n)
	}
}

func TestStore_Inbox(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me, bob, cara := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	l1, l2 := primitive.NewObjectID(), primitive.NewObjectID()
	t0 := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	fx.CreateMessage(ctx, bob, me, l1, "b1", t0)
	fx.CreateMessage(ctx, bob, me, l1, "b2", t0.Add(time.Minute))
	fx.CreateMessage(ctx, me, cara, l2, "c1", t0.Add(2*time.Minute))
	fx.CreateMessage(ctx, cara, bob, l2, "not mine", t0.Add(3*time.Minute))

	inbox, err := store.Inbox(ctx, me)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("inbox has %d entries, want 2", len(inbox))
	}
	if inbox[0].Counterpart != cara || inbox[0].Last.Content != "c1" || inbox[0].Unread != 0 {
		t.Errorf("first entry = %+v", inbox[0])
	}
	if inbox[1].Counterpart != bob || inbox[1].Last.Content != "b2" || inbox[1].Unread != 2 {
		t.Errorf("second entry = %+v", inbox[1])
	}
}

func TestStore_EditDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b, l := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	m := fx.CreateMessage(ctx, a, b, l, "original", time.Now().UTC())

	if _, err := store.Edit(ctx, m.ID, b, "hijack"); !errors.Is(err, messagestore.ErrNotSender) {
		t.Errorf("edit by receiver: %v", err)
	}
	edited, err := store.Edit(ctx, m.ID, a, "fixed")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Content != "fixed" || !edited.Edited {
		t.Errorf("edited = %+v", edited)
	}

	if _, err := store.Delete(ctx, m.ID, b); !errors.Is(err, messagestore.ErrNotSender) {
		t.Errorf("delete by receiver: %v", err)
	}
	deleted, err := store.Delete(ctx, m.ID, a)
	if err != nil || deleted.ID != m.ID {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, m.ID); !errors.Is(err, messagestore.ErrNotFound) {
		t.Errorf("after delete: %v", err)
	}
	if _, err := store.Delete(ctx, m.ID, a); !errors.Is(err, messagestore.ErrNotFound) {
		t.Errorf("delete twice: %v", err)
	}
}
