package hub

import (
	"github.com/npezzotti/go-chathub/internal/stats"
)

// handleSignal relays a session-negotiation message. The relay never
// interprets payloads and keeps no negotiation state: offers, answers
// and candidates are forwarded verbatim to the named target connection,
// as long as both sender and target are members of the same media room.
// Candidates may be forwarded repeatedly. A message addressed to a
// connection that is no longer present yields a non-fatal TargetGone
// error to the sender.
func (h *Hub) handleSignal(msg *ClientMessage) {
	c := msg.client
	s := msg.Signal

	if s.Kind == SignalLeave {
		if s.RoomId == "" || c.mediaRoom != s.RoomId {
			c.queueMessage(ErrRoomNotFound(msg.Id))
			return
		}
		h.leaveMediaRoom(c)
		c.queueMessage(NoErrOK(msg.Id, nil))
		return
	}

	switch s.Kind {
	case SignalOffer, SignalAnswer, SignalCandidate:
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	if s.RoomId == "" || s.Target == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	key := RoomKey{Kind: RoomMedia, Id: s.RoomId}

	h.roomsLock.RLock()
	members, ok := h.rooms[key]
	if !ok {
		h.roomsLock.RUnlock()
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}
	if _, ok := members[c]; !ok {
		h.roomsLock.RUnlock()
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	var target *Client
	for member := range members {
		if member.id == s.Target {
			target = member
			break
		}
	}
	h.roomsLock.RUnlock()

	if target == nil {
		c.queueMessage(ErrTargetGone(msg.Id))
		return
	}

	target.queueMessage(&ServerMessage{
		Timestamp: Now(),
		Signal: &SignalEvent{
			Kind:    s.Kind,
			RoomId:  s.RoomId,
			From:    c.id,
			UserId:  c.user.Id,
			Payload: s.Payload,
		},
	})

	h.stats.Incr(stats.SignalsRelayed)
}
