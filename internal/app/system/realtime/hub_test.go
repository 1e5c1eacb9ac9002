package realtime

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestClient(h *Hub, user primitive.ObjectID) *Client {
	c := NewClient(h, nil, user)
	h.Register(c)
	return c
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return Event{Type: ev.Type, Data: ev.Data}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return Event{}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected event %s", msg)
	default:
	}
}

func TestHub_ToUser(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	alice := primitive.NewObjectID()
	phone := newTestClient(h, alice)
	laptop := newTestClient(h, alice)
	other := newTestClient(h, primitive.NewObjectID())

	h.ToUser(alice, Event{Type: EventMessageNew, Data: map[string]string{"from": "bob"}})

	if ev := recv(t, phone); ev.Type != EventMessageNew {
		t.Errorf("phone got %q", ev.Type)
	}
	if ev := recv(t, laptop); ev.Type != EventMessageNew {
		t.Errorf("laptop got %q", ev.Type)
	}
	assertEmpty(t, other)
	if !h.Online(alice) {
		t.Error("alice should be online")
	}
}

func TestHub_RoomsAndFrames(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	listing := primitive.NewObjectID()
	a := newTestClient(h, alice)
	b := newTestClient(h, bob)
	eve := newTestClient(h, primitive.NewObjectID())

	a.handle(Frame{Type: FrameJoinConversation, ListingID: listing.Hex(), CounterpartID: bob.Hex()})
	b.handle(Frame{Type: FrameJoinConversation, ListingID: listing.Hex(), CounterpartID: alice.Hex()})
	// eve names alice as counterpart, which yields a different room.
	eve.handle(Frame{Type: FrameJoinConversation, ListingID: listing.Hex(), CounterpartID: alice.Hex()})
	// Malformed frames are ignored.
	eve.handle(Frame{Type: FrameJoinConversation, ListingID: "nope", CounterpartID: bob.Hex()})
	eve.handle(Frame{Type: "shout"})

	room := models.NewConversationKey(listing, alice, bob).Room()
	h.ToRoom(room, Event{Type: EventMessageReceive})

	recv(t, a)
	recv(t, b)
	assertEmpty(t, eve)

	b.handle(Frame{Type: FrameLeaveConversation, ListingID: listing.Hex(), CounterpartID: alice.Hex()})
	h.ToRoom(room, Event{Type: EventMessageEdited})
	recv(t, a)
	assertEmpty(t, b)
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	clients := []*Client{
		newTestClient(h, primitive.NewObjectID()),
		newTestClient(h, primitive.NewObjectID()),
		newTestClient(h, primitive.NewObjectID()),
	}
	h.Broadcast(Event{Type: EventAdminAlert, Data: "maintenance at noon"})
	for _, c := range clients {
		if ev := recv(t, c); ev.Type != EventAdminAlert {
			t.Errorf("got %q", ev.Type)
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	user := primitive.NewObjectID()
	c := newTestClient(h, user)

	for i := 0; i < SendBuffer+1; i++ {
		h.ToUser(user, Event{Type: EventMessageNew})
	}

	if h.Online(user) {
		t.Fatal("slow client should have been unregistered")
	}
	n := 0
	for range c.send {
		n++
	}
	if n != SendBuffer {
		t.Errorf("drained %d queued events, want %d", n, SendBuffer)
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)
	c := newTestClient(h, primitive.NewObjectID())
	c.handle(Frame{Type: FrameJoinConversation, ListingID: primitive.NewObjectID().Hex(), CounterpartID: primitive.NewObjectID().Hex()})

	h.Unregister(c)
	h.Unregister(c)

	if len(h.rooms) != 0 || len(h.users) != 0 || len(h.clients) != 0 {
		t.Errorf("hub not empty: rooms=%d users=%d clients=%d", len(h.rooms), len(h.users), len(h.clients))
	}
}

func TestNATSBus_RelaysToLocalHub(t *testing.T) {
	url := os.Getenv("HOPELINK_TEST_NATS_URL")
	if url == "" {
		t.Skip("HOPELINK_TEST_NATS_URL not set")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer nc.Close()

	h := NewHub(zap.NewNop(), nil)
	bus, err := NewNATSBus(nc, "hopelink_test_"+primitive.NewObjectID().Hex(), h, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNATSBus: %v", err)
	}
	defer bus.Close()

	user := primitive.NewObjectID()
	c := newTestClient(h, user)
	bus.ToUser(user, Event{Type: EventRoleChanged})
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if ev := recv(t, c); ev.Type != EventRoleChanged {
		t.Errorf("got %q", ev.Type)
	}
}
