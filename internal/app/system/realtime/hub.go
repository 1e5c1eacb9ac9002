package realtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type clientSet map[*Client]struct{}

// Hub tracks the sockets connected to this process and the user channel and
// rooms each one belongs to. It is the Publisher for single-instance runs.
type Hub struct {
	log       *zap.Logger
	connected prometheus.Gauge

	mu      sync.RWMutex
	clients clientSet
	users   map[primitive.ObjectID]clientSet
	rooms   map[string]clientSet
}

// NewHub creates an empty hub. connected may be nil.
func NewHub(log *zap.Logger, connected prometheus.Gauge) *Hub {
	return &Hub{
		log:       log,
		connected: connected,
		clients:   clientSet{},
		users:     map[primitive.ObjectID]clientSet{},
		rooms:     map[string]clientSet{},
	}
}

// Register adds c and joins it to its user channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	set, ok := h.users[c.UserID]
	if !ok {
		set = clientSet{}
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
	if h.connected != nil {
		h.connected.Inc()
	}
}

// Unregister removes c from every channel and closes its send queue. It is
// safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if set := h.users[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send)
	if h.connected != nil {
		h.connected.Dec()
	}
}

// Join adds c to room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	set, ok := h.rooms[room]
	if !ok {
		set = clientSet{}
		h.rooms[room] = set
	}
	set[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave removes c from room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if set := h.rooms[room]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Online reports whether userID has at least one socket on this process.
func (h *Hub) Online(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) ToUser(userID primitive.ObjectID, ev Event) {
	if payload, ok := h.encode(ev); ok {
		h.deliverUser(userID, payload)
	}
}

func (h *Hub) ToRoom(room string, ev Event) {
	if payload, ok := h.encode(ev); ok {
		h.deliverRoom(room, payload)
	}
}

func (h *Hub) Broadcast(ev Event) {
	if payload, ok := h.encode(ev); ok {
		h.deliverAll(payload)
	}
}

func (h *Hub) encode(ev Event) ([]byte, bool) {
	payload, err := ev.encode()
	if err != nil {
		h.log.Warn("realtime: encode event failed", zap.String("type", ev.Type), zap.Error(err))
		return nil, false
	}
	return payload, true
}

func (h *Hub) deliverUser(userID primitive.ObjectID, payload []byte) {
	h.mu.RLock()
	slow := deliver(h.users[userID], payload)
	h.mu.RUnlock()
	h.drop(slow)
}

func (h *Hub) deliverRoom(room string, payload []byte) {
	h.mu.RLock()
	slow := deliver(h.rooms[room], payload)
	h.mu.RUnlock()
	h.drop(slow)
}

func (h *Hub) deliverAll(payload []byte) {
	h.mu.RLock()
	slow := deliver(h.clients, payload)
	h.mu.RUnlock()
	h.drop(slow)
}

// deliver queues payload on every client in set without blocking and
// returns the clients whose queue was full.
func deliver(set clientSet, payload []byte) []*Client {
	var slow []*Client
	for c := range set {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	return slow
}

func (h *Hub) drop(slow []*Client) {
	for _, c := range slow {
		h.log.Warn("realtime: dropping slow client",
			zap.String("client_id", c.ID),
			zap.String("user_id", c.UserID.Hex()))
		h.Unregister(c)
	}
}
