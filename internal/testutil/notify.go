package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/notify"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/push"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Published is one event captured by Recorder.
type Published struct {
	User  primitive.ObjectID // set for ToUser
	Room  string             // set for ToRoom
	Event realtime.Event
}

// Recorder is a realtime.Publisher that keeps what it was asked to send.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) add(p Published) {
	r.mu.Lock()
	r.events = append(r.events, p)
	r.mu.Unlock()
}

func (r *Recorder) ToUser(id primitive.ObjectID, e realtime.Event) { r.add(Published{User: id, Event: e}) }
func (r *Recorder) ToRoom(room string, e realtime.Event)         { r.add(Published{Room: room, Event: e}) }
func (r *Recorder) Broadcast(e realtime.Event)                   { r.add(Published{Event: e}) }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// OfType returns the published events of type typ.
func (r *Recorder) OfType(typ string) []Published {
	var out []Published
	for _, p := range r.Events() {
		if p.Event.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// NewNotifier returns a notifier that records realtime events and discards
// pushes. Its dispatcher is stopped when the test ends.
func NewNotifier(t *testing.T, users notify.Users) (*notify.Notifier, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	jobs := notify.NewDispatcher(zap.NewNop(), nil, 1, 64, 5*time.Second)
	jobs.Start()
	t.Cleanup(jobs.Stop)
	return &notify.Notifier{
		RT:                rec,
		Push:              push.Noop{},
		Users:             users,
		Jobs:              jobs,
		Log:               zap.NewNop(),
		EmergencyRadiusKm: 20,
	}, rec
}
