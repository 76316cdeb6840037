package hub

import (
	"context"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/npezzotti/go-chathub/internal/assistant"
	"github.com/npezzotti/go-chathub/internal/database"
	"github.com/npezzotti/go-chathub/internal/stats"
	"github.com/npezzotti/go-chathub/internal/types"
)

// Options configures the assistant bridge. Zero values fall back to the
// defaults below.
type Options struct {
	AssistantChannel string
	AssistantMention string
	AssistantName    string
	AssistantTimeout time.Duration
}

const (
	defaultAssistantChannel = "assistant"
	defaultAssistantMention = "@assistant"
	defaultAssistantName    = "Assistant"
	defaultAssistantTimeout = 30 * time.Second
)

type Hub struct {
	log       *log.Logger
	db        database.ChatHubRepository
	completer assistant.Completer
	stats     stats.StatsProvider

	registry *Registry

	roomsLock sync.RWMutex
	rooms     map[RoomKey]map[*Client]struct{}

	clientsLock sync.Mutex
	clients     map[*Client]struct{}
	clientsWG   sync.WaitGroup

	assistantChannel string
	assistantName    string
	assistantTimeout time.Duration
	mentionRe        *regexp.Regexp
}

func NewHub(logger *log.Logger, db database.ChatHubRepository, completer assistant.Completer, su stats.StatsProvider, opts Options) (*Hub, error) {
	if opts.AssistantChannel == "" {
		opts.AssistantChannel = defaultAssistantChannel
	}
	if opts.AssistantMention == "" {
		opts.AssistantMention = defaultAssistantMention
	}
	if opts.AssistantName == "" {
		opts.AssistantName = defaultAssistantName
	}
	if opts.AssistantTimeout <= 0 {
		opts.AssistantTimeout = defaultAssistantTimeout
	}

	mentionRe, err := regexp.Compile("(?i)" + regexp.QuoteMeta(opts.AssistantMention))
	if err != nil {
		return nil, err
	}

	h := &Hub{
		log:              logger,
		db:               db,
		completer:        completer,
		stats:            su,
		registry:         NewRegistry(),
		rooms:            make(map[RoomKey]map[*Client]struct{}),
		clients:          make(map[*Client]struct{}),
		assistantChannel: opts.AssistantChannel,
		assistantName:    opts.AssistantName,
		assistantTimeout: opts.AssistantTimeout,
		mentionRe:        mentionRe,
	}

	su.RegisterMetric(stats.ActiveConnections)
	su.RegisterMetric(stats.ActiveRooms)
	su.RegisterMetric(stats.MessagesSent)
	su.RegisterMetric(stats.SignalsRelayed)
	su.RegisterMetric(stats.AssistantCalls)

	return h, nil
}

// Registry exposes read-only presence lookups to the API layer.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) RegisterClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	h.clients[c] = struct{}{}
	h.clientsWG.Add(1)
	h.stats.Incr(stats.ActiveConnections)
}

func (h *Hub) removeClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.clientsWG.Done()
	h.stats.Decr(stats.ActiveConnections)
}

func (h *Hub) handleAnnounce(msg *ClientMessage) {
	a := msg.Announce
	c := msg.client

	if a.UserId == 0 || a.Username == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	c.user = &types.User{Id: a.UserId, Username: a.Username, Status: types.StatusOnline}

	if replaced := h.registry.Connect(c); replaced != nil {
		h.log.Printf("connection %s replaces %s for user %d", c.id, replaced.id, a.UserId)
	}

	// the presence flip itself cannot fail; the storage mirror is best effort
	if err := h.db.UpdateAccountStatus(a.UserId, string(types.StatusOnline)); err != nil {
		h.log.Println("UpdateAccountStatus:", err)
	}

	h.broadcastUserStatus(a.UserId, types.StatusOnline, c)

	c.queueMessage(NoErrOK(msg.Id, map[string]any{"connection_id": c.id}))
}

// broadcastUserStatus notifies every connection except origin of a
// presence change.
func (h *Hub) broadcastUserStatus(userId int, status types.Status, origin *Client) {
	msg := &ServerMessage{
		Timestamp: Now(),
		Notification: &Notification{
			UserStatus: &UserStatusEvent{UserId: userId, Status: status},
		},
	}

	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for client := range h.clients {
		if client == origin {
			continue
		}
		client.queueMessage(msg)
	}
}

// handleDisconnect tears down all state for a connection: room
// membership, presence, registration. It is driven solely by the
// transport closing; no hub-level error reaches here.
func (h *Hub) handleDisconnect(c *Client) {
	h.roomsLock.Lock()
	if c.convRoom != "" {
		h.removeMemberLocked(RoomKey{Kind: RoomConversation, Id: c.convRoom}, c)
		c.convRoom = ""
	}
	var mediaKey RoomKey
	hadMedia := c.mediaRoom != ""
	if hadMedia {
		mediaKey = RoomKey{Kind: RoomMedia, Id: c.mediaRoom}
		h.removeMemberLocked(mediaKey, c)
		c.mediaRoom = ""
	}
	h.roomsLock.Unlock()

	if hadMedia && c.user != nil {
		h.broadcast(mediaKey, &ServerMessage{
			Timestamp: Now(),
			Notification: &Notification{
				PeerLeft: &PeerEvent{RoomId: mediaKey.Id, ConnectionId: c.id, UserId: c.user.Id},
			},
		})
	}

	if c.user != nil && h.registry.Disconnect(c) {
		if err := h.db.UpdateAccountStatus(c.user.Id, string(types.StatusOffline)); err != nil {
			h.log.Println("UpdateAccountStatus:", err)
		}
		h.broadcastUserStatus(c.user.Id, types.StatusOffline, c)
	}

	h.removeClient(c)
}

// Shutdown stops all client connections and waits for their teardown.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.log.Println("shutting down hub")

	h.clientsLock.Lock()
	for c := range h.clients {
		c.stopClient()
	}
	h.clientsLock.Unlock()

	done := make(chan struct{})
	go func() {
		h.clientsWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
