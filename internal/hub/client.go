package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chathub/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live connection. The connection id is transport-assigned
// and opaque; user is nil until the client announces an identity. The
// current room fields are guarded by the hub's roomsLock.
type Client struct {
	id       string
	conn     *websocket.Conn
	hub      *Hub
	log      *log.Logger
	user     *types.User
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once

	convRoom  string
	mediaRoom string
}

func NewClient(conn *websocket.Conn, h *Hub, l *log.Logger) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		hub:  h,
		log:  l,
		send: make(chan *ServerMessage, 256),
		stop: make(chan struct{}),
	}
}

// Id returns the transport-assigned connection id.
func (c *Client) Id() string {
	return c.id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// Read is the single dispatch stream for this connection: events are
// handled in the order the transport delivers them.
func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.hub.handleDisconnect(c)
		c.stopClient()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		c.dispatch(&msg)
	}
}

// dispatch routes a client event to its handler. Every event except
// announce requires an announced identity.
func (c *Client) dispatch(msg *ClientMessage) {
	if msg.Announce != nil {
		c.hub.handleAnnounce(msg)
		return
	}

	if c.user == nil {
		c.queueMessage(ErrNotAnnounced(msg.Id))
		return
	}

	switch {
	case msg.JoinConversation != nil:
		c.hub.handleJoinConversation(msg)
	case msg.JoinMedia != nil:
		c.hub.handleJoinMedia(msg)
	case msg.LeaveMedia != nil:
		c.hub.handleLeaveMedia(msg)
	case msg.Publish != nil:
		c.hub.handlePublish(msg)
	case msg.Typing != nil:
		c.hub.handleTyping(msg)
	case msg.Signal != nil:
		c.hub.handleSignal(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
