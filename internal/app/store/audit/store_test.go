package audit_test

import (
	"testing"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/store/audit"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	before := time.Now().Add(-time.Second)
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		Success:   true,
		Details:   map[string]string{"method": "password"},
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.Query(ctx, audit.QueryFilter{UserID: &userID, Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if ev.Timestamp.Before(before) {
		t.Errorf("timestamp %v not set", ev.Timestamp)
	}
	if ev.Details["method"] != "password" {
		t.Errorf("details = %v", ev.Details)
	}
}

func TestStore_QueryFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	target := primitive.NewObjectID()
	events := []audit.Event{
		{Category: audit.CategoryAdmin, EventType: audit.EventAdminGranted, ActorID: &admin, UserID: &target, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventUserDeleted, ActorID: &admin, Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, Success: false},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 3},
		{"by category", audit.QueryFilter{Category: audit.CategoryAdmin}, 2},
		{"by type", audit.QueryFilter{EventType: audit.EventLoginFailed}, 1},
		{"by actor", audit.QueryFilter{ActorID: &admin}, 2},
		{"by user", audit.QueryFilter{UserID: &target}, 1},
		{"limit", audit.QueryFilter{Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}

	n, err := store.Count(ctx, audit.QueryFilter{Category: audit.CategoryAdmin})
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestStore_Query_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	events, err := store.Query(ctx, audit.QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", events)
	}
}

func TestStore_QueryTimeRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{day.Add(-time.Hour), day.Add(time.Hour), day.Add(23 * time.Hour), day.Add(25 * time.Hour)} {
		if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Timestamp: ts}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	end := day.Add(24 * time.Hour)
	got, err := store.Query(ctx, audit.QueryFilter{Since: &day, Until: &end})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || !got[0].Timestamp.Equal(day.Add(23*time.Hour)) {
		t.Fatalf("got %d events: %+v", len(got), got)
	}

	n, err := store.Count(ctx, audit.QueryFilter{Since: &day})
	if err != nil || n != 3 {
		t.Errorf("Count since = %d, %v", n, err)
	}
}
