package realtime

import (
	"strings"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NATSBus publishes events on NATS so every instance delivers them to its
// own sockets. Subjects are <prefix>.user.<id>, <prefix>.room.<room> and
// <prefix>.broadcast.
type NATSBus struct {
	nc     *nats.Conn
	prefix string
	hub    *Hub
	log    *zap.Logger
	subs   []*nats.Subscription
}

// NewNATSBus subscribes to the prefix's subjects and relays what arrives to
// hub.
func NewNATSBus(nc *nats.Conn, prefix string, hub *Hub, log *zap.Logger) (*NATSBus, error) {
	b := &NATSBus{nc: nc, prefix: prefix, hub: hub, log: log}

	handlers := map[string]nats.MsgHandler{
		prefix + ".user.*":    b.onUser,
		prefix + ".room.*":    b.onRoom,
		prefix + ".broadcast": b.onBroadcast,
	}
	for subject, h := range handlers {
		sub, err := nc.Subscribe(subject, h)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.subs = append(b.subs, sub)
	}
	return b, nil
}

func (b *NATSBus) userSubject(id primitive.ObjectID) string {
	return b.prefix + ".user." + id.Hex()
}

func (b *NATSBus) roomSubject(room string) string {
	return b.prefix + ".room." + room
}

func (b *NATSBus) ToUser(userID primitive.ObjectID, ev Event) {
	b.publish(b.userSubject(userID), ev)
}

func (b *NATSBus) ToRoom(room string, ev Event) {
	b.publish(b.roomSubject(room), ev)
}

func (b *NATSBus) Broadcast(ev Event) {
	b.publish(b.prefix+".broadcast", ev)
}

func (b *NATSBus) publish(subject string, ev Event) {
	payload, err := ev.encode()
	if err != nil {
		b.log.Warn("realtime: encode event failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := b.nc.Publish(subject, payload); err != nil {
		b.log.Warn("realtime: nats publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (b *NATSBus) onUser(msg *nats.Msg) {
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(msg.Subject, b.prefix+".user."))
	if err != nil {
		return
	}
	b.hub.deliverUser(id, msg.Data)
}

func (b *NATSBus) onRoom(msg *nats.Msg) {
	b.hub.deliverRoom(strings.TrimPrefix(msg.Subject, b.prefix+".room."), msg.Data)
}

func (b *NATSBus) onBroadcast(msg *nats.Msg) {
	b.hub.deliverAll(msg.Data)
}

// Close unsubscribes. The connection itself is owned by the caller.
func (b *NATSBus) Close() {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			b.log.Debug("realtime: unsubscribe failed", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	b.subs = nil
}
