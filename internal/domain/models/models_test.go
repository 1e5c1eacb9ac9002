package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRankFor(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, RankHelper},
		{199, RankHelper},
		{200, RankGuardian},
		{499, RankGuardian},
		{500, RankHero},
		{10000, RankHero},
	}
	for _, tt := range tests {
		if got := RankFor(tt.points); got != tt.want {
			t.Errorf("RankFor(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestGeoPointValid(t *testing.T) {
	tests := []struct {
		p    GeoPoint
		want bool
	}{
		{NewGeoPoint(77.59, 12.97), true},
		{NewGeoPoint(-180, -90), true},
		{NewGeoPoint(181, 0), false},
		{NewGeoPoint(0, 91), false},
		{GeoPoint{Type: "Polygon"}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
	p := NewGeoPoint(1.5, 2.5)
	if p.Lng() != 1.5 || p.Lat() != 2.5 {
		t.Errorf("Lng/Lat = %v/%v", p.Lng(), p.Lat())
	}
}

func TestConversationKey_Symmetric(t *testing.T) {
	listing := primitive.NewObjectID()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	k1 := NewConversationKey(listing, a, b)
	k2 := NewConversationKey(listing, b, a)
	if k1 != k2 {
		t.Errorf("keys differ: %+v vs %+v", k1, k2)
	}
	if k1.Room() != k2.Room() {
		t.Error("room names differ")
	}
	if NewConversationKey(primitive.NewObjectID(), a, b) == k1 {
		t.Error("different listings must give different keys")
	}

	m := Message{SenderID: b, ReceiverID: a, ListingID: listing}
	if m.Key() != k1 {
		t.Error("message key should match")
	}
	if m.Counterpart(a) != b || m.Counterpart(b) != a {
		t.Error("Counterpart mismatch")
	}
}

func TestListingVisibility(t *testing.T) {
	owner := primitive.NewObjectID()
	receiver := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	l := Listing{OwnerID: owner, ReceiverID: &receiver, RequestedBy: []primitive.ObjectID{receiver}}

	if !l.CanSeePIN(owner) || !l.CanSeePIN(receiver) || l.CanSeePIN(stranger) {
		t.Error("PIN visibility wrong")
	}
}

func TestValidators(t *testing.T) {
	if !IsValidBloodGroup("AB-") || IsValidBloodGroup("AB") {
		t.Error("blood group validation wrong")
	}
	if !IsValidRole(RoleDonor) || IsValidRole("admin") {
		t.Error("role validation wrong")
	}
	if !IsValidRating(1) || !IsValidRating(5) || IsValidRating(0) || IsValidRating(6) {
		t.Error("rating validation wrong")
	}
	if !IsValidStatus(StatusPending) || IsValidStatus("closed") {
		t.Error("status validation wrong")
	}
}
