package hub

// handleTyping relays a typing indicator to the other members of the
// target conversation room, never to the sender. No state is kept and
// no expiry is enforced server-side; clearing a dangling indicator is
// the receiving client's job.
func (h *Hub) handleTyping(msg *ClientMessage) {
	c := msg.client
	tv := msg.Typing

	roomId := tv.Target.ConversationId()
	if roomId == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	ev := &TypingEvent{
		ChannelId: tv.Target.ChannelId,
		DmId:      tv.Target.DmId,
		UserId:    c.user.Id,
		Started:   tv.Started,
	}
	if tv.Started {
		ev.Username = c.user.Username
	}

	h.broadcast(RoomKey{Kind: RoomConversation, Id: roomId}, &ServerMessage{
		Timestamp:    Now(),
		Notification: &Notification{Typing: ev},
		SkipClient:   c,
	})
}
