package hub

import (
	"strings"

	"github.com/npezzotti/go-chathub/internal/database"
	"github.com/npezzotti/go-chathub/internal/stats"
	"github.com/npezzotti/go-chathub/internal/types"
)

type RoomKind string

const (
	RoomConversation RoomKind = "conversation"
	RoomMedia        RoomKind = "media"
)

// RoomKey identifies a fanout group. Rooms exist only implicitly as the
// union of current memberships: an empty room is removed from the map.
type RoomKey struct {
	Kind RoomKind
	Id   string
}

func (h *Hub) addMemberLocked(key RoomKey, c *Client) {
	members, ok := h.rooms[key]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[key] = members
		h.stats.Incr(stats.ActiveRooms)
	}
	members[c] = struct{}{}
}

func (h *Hub) removeMemberLocked(key RoomKey, c *Client) {
	members, ok := h.rooms[key]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, key)
		h.stats.Decr(stats.ActiveRooms)
	}
}

// members returns a snapshot of a room's membership.
func (h *Hub) members(key RoomKey) []*Client {
	h.roomsLock.RLock()
	defer h.roomsLock.RUnlock()

	clients := make([]*Client, 0, len(h.rooms[key]))
	for c := range h.rooms[key] {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) isMember(key RoomKey, c *Client) bool {
	h.roomsLock.RLock()
	defer h.roomsLock.RUnlock()

	_, ok := h.rooms[key][c]
	return ok
}

// broadcast delivers msg to every current member of key, honoring
// msg.SkipClient. Broadcasting to an absent or empty room is a silent
// no-op.
func (h *Hub) broadcast(key RoomKey, msg *ServerMessage) {
	h.roomsLock.RLock()
	defer h.roomsLock.RUnlock()

	for client := range h.rooms[key] {
		if client == msg.SkipClient {
			continue
		}
		client.queueMessage(msg)
	}
}

// handleJoinConversation switches the connection's conversation room.
// A connection occupies at most one conversation room: joining a new one
// leaves the previous one first. Media room membership is untouched.
func (h *Hub) handleJoinConversation(msg *ClientMessage) {
	c := msg.client

	roomId := msg.JoinConversation.Target.ConversationId()
	if roomId == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	h.roomsLock.Lock()
	if c.convRoom != "" && c.convRoom != roomId {
		h.removeMemberLocked(RoomKey{Kind: RoomConversation, Id: c.convRoom}, c)
	}
	h.addMemberLocked(RoomKey{Kind: RoomConversation, Id: roomId}, c)
	c.convRoom = roomId
	h.roomsLock.Unlock()

	c.queueMessage(NoErrOK(msg.Id, nil))
}

// handleJoinMedia adds the connection to a media room, leaving any
// previous media room first. Existing members are notified of the new
// peer; the joiner receives no self-join notice. Initiation policy is
// client-owned: each existing member is expected to offer toward the
// joiner, yielding a full mesh.
func (h *Hub) handleJoinMedia(msg *ClientMessage) {
	c := msg.client

	roomId := msg.JoinMedia.RoomId
	if roomId == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	if c.mediaRoom == roomId {
		c.queueMessage(NoErrOK(msg.Id, map[string]any{"connection_id": c.id}))
		return
	}

	var prevKey RoomKey
	hadPrev := c.mediaRoom != ""
	if hadPrev {
		prevKey = RoomKey{Kind: RoomMedia, Id: c.mediaRoom}
	}

	key := RoomKey{Kind: RoomMedia, Id: roomId}

	h.roomsLock.Lock()
	if hadPrev {
		h.removeMemberLocked(prevKey, c)
	}
	h.addMemberLocked(key, c)
	c.mediaRoom = roomId
	h.roomsLock.Unlock()

	if hadPrev {
		h.broadcast(prevKey, &ServerMessage{
			Timestamp: Now(),
			Notification: &Notification{
				PeerLeft: &PeerEvent{RoomId: prevKey.Id, ConnectionId: c.id, UserId: c.user.Id},
			},
		})
	}

	h.broadcast(key, &ServerMessage{
		Timestamp: Now(),
		Notification: &Notification{
			PeerJoined: &PeerEvent{RoomId: roomId, ConnectionId: c.id, UserId: c.user.Id},
		},
		SkipClient: c,
	})

	c.queueMessage(NoErrOK(msg.Id, map[string]any{"connection_id": c.id}))
}

func (h *Hub) handleLeaveMedia(msg *ClientMessage) {
	c := msg.client

	roomId := msg.LeaveMedia.RoomId
	if roomId == "" || c.mediaRoom != roomId {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	h.leaveMediaRoom(c)
	c.queueMessage(NoErrOK(msg.Id, nil))
}

// leaveMediaRoom removes c from its current media room and notifies the
// remaining members.
func (h *Hub) leaveMediaRoom(c *Client) {
	h.roomsLock.Lock()
	if c.mediaRoom == "" {
		h.roomsLock.Unlock()
		return
	}
	key := RoomKey{Kind: RoomMedia, Id: c.mediaRoom}
	h.removeMemberLocked(key, c)
	c.mediaRoom = ""
	h.roomsLock.Unlock()

	h.broadcast(key, &ServerMessage{
		Timestamp: Now(),
		Notification: &Notification{
			PeerLeft: &PeerEvent{RoomId: key.Id, ConnectionId: c.id, UserId: c.user.Id},
		},
	})
}

// handlePublish validates, persists and fans out a chat message. The
// sender always sees its own message echoed back with the server-issued
// id and timestamp. On persistence failure nothing is broadcast and the
// failure is reported to the sender only.
func (h *Hub) handlePublish(msg *ClientMessage) {
	c := msg.client
	p := msg.Publish

	if strings.TrimSpace(p.Content) == "" || p.Target.Validate() != nil {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	kind := p.Kind
	if kind == "" {
		kind = types.MessageKindText
	}

	isAssistantRoom := p.Target.ChannelId == h.assistantChannel

	params := database.CreateMessageParams{
		ChannelId: p.Target.ChannelId,
		DmId:      p.Target.DmId,
		UserId:    c.user.Id,
		Content:   p.Content,
		Kind:      kind,
	}
	if isAssistantRoom {
		// the assistant channel has no backing row; store unattached
		params.ChannelId = ""
	}

	stored, err := h.db.CreateMessage(params)
	if err != nil {
		h.log.Println("CreateMessage:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	out := types.Message{
		Id:        stored.Id,
		ChannelId: p.Target.ChannelId,
		DmId:      p.Target.DmId,
		UserId:    stored.UserId,
		Username:  stored.Username,
		Avatar:    stored.Avatar,
		Role:      stored.Role,
		Content:   stored.Content,
		Kind:      stored.Kind,
		Timestamp: stored.CreatedAt,
	}

	key := RoomKey{Kind: RoomConversation, Id: p.Target.ConversationId()}
	sm := &ServerMessage{
		Id:        msg.Id,
		Timestamp: stored.CreatedAt,
		Message:   &out,
	}

	h.broadcast(key, sm)
	if !h.isMember(key, c) {
		// sender may publish without being joined; echo directly
		c.queueMessage(sm)
	}

	h.stats.Incr(stats.MessagesSent)

	if isAssistantRoom || h.mentionRe.MatchString(p.Content) {
		go h.invokeAssistant(p.Content, p.Target)
	}
}
