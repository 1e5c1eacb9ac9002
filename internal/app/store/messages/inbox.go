package messagestore

import (
	"context"
	"sort"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InboxEntry summarizes one conversation from the viewer's side.
type InboxEntry struct {
	Key         models.ConversationKey
	ListingID   primitive.ObjectID
	Counterpart primitive.ObjectID
	Last        models.Message
	Unread      int
}

// BuildInbox groups msgs by (listing, counterpart), keeping the latest
// message of each group and counting unread messages addressed to me.
// Entries are ordered by latest message, newest first.
func BuildInbox(me primitive.ObjectID, msgs []models.Message) []InboxEntry {
	byKey := make(map[models.ConversationKey]int)
	out := []InboxEntry{}

	for _, m := range msgs {
		key := m.Key()
		i, ok := byKey[key]
		if !ok {
			i = len(out)
			byKey[key] = i
			out = append(out, InboxEntry{
				Key:         key,
				ListingID:   m.ListingID,
				Counterpart: m.Counterpart(me),
				Last:        m,
			})
		} else if later(m, out[i].Last) {
			out[i].Last = m
		}
		if m.ReceiverID == me && !m.Read {
			out[i].Unread++
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return later(out[a].Last, out[b].Last)
	})
	return out
}

func later(a, b models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.Hex() > b.ID.Hex()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Inbox computes the inbox for me from every message me sent or received.
func (s *Store) Inbox(ctx context.Context, me primitive.ObjectID) ([]InboxEntry, error) {
	msgs, err := s.Involving(ctx, me)
	if err != nil {
		return nil, err
	}
	return BuildInbox(me, msgs), nil
}
