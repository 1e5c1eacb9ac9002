package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// SendBuffer is how many events may queue for one client before it is
	// considered too slow and dropped.
	SendBuffer = 32
)

// Client frame types.
const (
	FrameJoinConversation  = "join_conversation"
	FrameLeaveConversation = "leave_conversation"
)

// Frame is a client-to-server message.
type Frame struct {
	Type          string `json:"type"`
	ListingID     string `json:"listing_id"`
	CounterpartID string `json:"counterpart_id"`
}

// Client is one websocket connection owned by an authenticated user.
type Client struct {
	ID     string
	UserID primitive.ObjectID

	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{} // guarded by hub.mu
	log   *zap.Logger
}

// NewClient wraps conn for userID. conn may be nil in tests that never run
// the pumps.
func NewClient(hub *Hub, conn *websocket.Conn, userID primitive.ObjectID) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, SendBuffer),
		rooms:  map[string]struct{}{},
		log:    hub.log,
	}
}

// Serve registers the client and runs its pumps until the connection
// closes.
func (c *Client) Serve() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("realtime: read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		c.handle(f)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle applies a client frame. Conversation rooms always include the
// client's own user, so a socket can only join threads it takes part in.
func (c *Client) handle(f Frame) {
	switch f.Type {
	case FrameJoinConversation, FrameLeaveConversation:
	default:
		return
	}
	listing, err := primitive.ObjectIDFromHex(f.ListingID)
	if err != nil {
		return
	}
	counterpart, err := primitive.ObjectIDFromHex(f.CounterpartID)
	if err != nil || counterpart == c.UserID {
		return
	}
	room := models.NewConversationKey(listing, c.UserID, counterpart).Room()
	if f.Type == FrameJoinConversation {
		c.hub.Join(c, room)
	} else {
		c.hub.Leave(c, room)
	}
}
