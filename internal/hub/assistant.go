package hub

import (
	"context"
	"strings"

	"github.com/npezzotti/go-chathub/internal/stats"
	"github.com/npezzotti/go-chathub/internal/types"
)

// assistantUserId is the assistant's pseudo-identity.
const assistantUserId = 0

const assistantFallback = "Sorry, I encountered an error. Please try again later."

// invokeAssistant runs on its own goroutine: the completion call may
// block for a long time and must never be made while holding a hub lock.
// The reply (or the fallback on failure) is broadcast to the same room
// through the normal fanout path and is never persisted. If the room has
// emptied by the time the completion resolves, the broadcast is a silent
// no-op.
func (h *Hub) invokeAssistant(content string, target RoomTarget) {
	ctx, cancel := context.WithTimeout(context.Background(), h.assistantTimeout)
	defer cancel()

	prompt := strings.TrimSpace(h.mentionRe.ReplaceAllString(content, ""))

	reply, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		h.log.Println("assistant complete:", err)
		reply = assistantFallback
	}

	h.stats.Incr(stats.AssistantCalls)

	now := Now()
	h.broadcast(RoomKey{Kind: RoomConversation, Id: target.ConversationId()}, &ServerMessage{
		Timestamp: now,
		Message: &types.Message{
			ChannelId: target.ChannelId,
			DmId:      target.DmId,
			UserId:    assistantUserId,
			Username:  h.assistantName,
			Role:      "ai",
			Content:   reply,
			Kind:      types.MessageKindAssistant,
			Timestamp: now,
		},
	})
}
