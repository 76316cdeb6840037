package hub

import (
	"errors"
	"testing"

	"github.com/npezzotti/go-chathub/internal/assistant"
	"github.com/npezzotti/go-chathub/internal/database"
	"github.com/npezzotti/go-chathub/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleJoinConversation(t *testing.T) {
	t.Run("join and switch rooms", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")

		h.handleJoinConversation(&ClientMessage{
			Id:               1,
			JoinConversation: &JoinConversation{Target: RoomTarget{ChannelId: "general"}},
			client:           c,
		})

		resp := recvMessage(t, c)
		require.NotNil(t, resp.Response)
		assert.Equal(t, 200, resp.Response.ResponseCode)
		assert.Equal(t, "channel:general", c.convRoom)
		assert.True(t, h.isMember(RoomKey{Kind: RoomConversation, Id: "channel:general"}, c))

		h.handleJoinConversation(&ClientMessage{
			Id:               2,
			JoinConversation: &JoinConversation{Target: RoomTarget{DmId: "abc123"}},
			client:           c,
		})
		recvMessage(t, c)

		assert.Equal(t, "dm:abc123", c.convRoom)
		assert.True(t, h.isMember(RoomKey{Kind: RoomConversation, Id: "dm:abc123"}, c))
		assert.False(t, h.isMember(RoomKey{Kind: RoomConversation, Id: "channel:general"}, c),
			"expected previous conversation room to be left")

		// the emptied room is gone entirely
		h.roomsLock.RLock()
		_, ok := h.rooms[RoomKey{Kind: RoomConversation, Id: "channel:general"}]
		h.roomsLock.RUnlock()
		assert.False(t, ok, "expected empty room to be removed")
	})

	t.Run("switching conversations leaves media membership intact", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")

		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: c})
		recvMessage(t, c)

		h.handleJoinConversation(&ClientMessage{
			JoinConversation: &JoinConversation{Target: RoomTarget{ChannelId: "general"}},
			client:           c,
		})
		recvMessage(t, c)

		assert.Equal(t, "huddle", c.mediaRoom)
		assert.True(t, h.isMember(RoomKey{Kind: RoomMedia, Id: "huddle"}, c))
	})

	t.Run("invalid target", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")

		h.handleJoinConversation(&ClientMessage{
			Id:               1,
			JoinConversation: &JoinConversation{Target: RoomTarget{}},
			client:           c,
		})

		resp := recvMessage(t, c)
		require.NotNil(t, resp.Response)
		assert.Equal(t, 400, resp.Response.ResponseCode)
		assert.Equal(t, "", c.convRoom)
	})
}

func TestHandleJoinMedia(t *testing.T) {
	t.Run("existing members are notified of the new peer", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		first := newTestClient(t, h, 1, "first")
		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: first})
		recvMessage(t, first)

		second := newTestClient(t, h, 2, "second")
		h.handleJoinMedia(&ClientMessage{Id: 5, JoinMedia: &JoinMedia{RoomId: "huddle"}, client: second})

		joined := recvMessage(t, first)
		require.NotNil(t, joined.Notification)
		require.NotNil(t, joined.Notification.PeerJoined)
		assert.Equal(t, second.id, joined.Notification.PeerJoined.ConnectionId)
		assert.Equal(t, 2, joined.Notification.PeerJoined.UserId)

		ack := recvMessage(t, second)
		require.NotNil(t, ack.Response)
		assert.Equal(t, 200, ack.Response.ResponseCode)
		assertNoMessage(t, second)
	})

	t.Run("joining a second media room leaves the first", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")
		peer := newTestClient(t, h, 2, "peer")

		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "first"}, client: c})
		recvMessage(t, c)
		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "first"}, client: peer})
		recvMessage(t, peer)
		recvMessage(t, c) // peer joined notice

		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "second"}, client: c})
		recvMessage(t, c)

		assert.Equal(t, "second", c.mediaRoom)
		assert.False(t, h.isMember(RoomKey{Kind: RoomMedia, Id: "first"}, c))

		left := recvMessage(t, peer)
		require.NotNil(t, left.Notification)
		require.NotNil(t, left.Notification.PeerLeft)
		assert.Equal(t, "first", left.Notification.PeerLeft.RoomId)
		assert.Equal(t, c.id, left.Notification.PeerLeft.ConnectionId)
	})

	t.Run("rejoining the same room is idempotent", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")
		peer := newTestClient(t, h, 2, "peer")

		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: c})
		recvMessage(t, c)
		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: peer})
		recvMessage(t, peer)
		recvMessage(t, c)

		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: c})
		ack := recvMessage(t, c)
		require.NotNil(t, ack.Response)
		assert.Equal(t, 200, ack.Response.ResponseCode)

		assertNoMessage(t, peer)
		assert.Len(t, h.members(RoomKey{Kind: RoomMedia, Id: "huddle"}), 2)
	})
}

func TestHandleLeaveMedia(t *testing.T) {
	t.Run("leave notifies remaining members", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")
		peer := newTestClient(t, h, 2, "peer")

		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: c})
		recvMessage(t, c)
		h.handleJoinMedia(&ClientMessage{JoinMedia: &JoinMedia{RoomId: "huddle"}, client: peer})
		recvMessage(t, peer)
		recvMessage(t, c)

		h.handleLeaveMedia(&ClientMessage{Id: 3, LeaveMedia: &LeaveMedia{RoomId: "huddle"}, client: c})

		assert.Equal(t, "", c.mediaRoom)
		ack := recvMessage(t, c)
		require.NotNil(t, ack.Response)
		assert.Equal(t, 200, ack.Response.ResponseCode)

		left := recvMessage(t, peer)
		require.NotNil(t, left.Notification)
		require.NotNil(t, left.Notification.PeerLeft)
		assert.Equal(t, c.id, left.Notification.PeerLeft.ConnectionId)
	})

	t.Run("leaving a room the connection is not in", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		c := newTestClient(t, h, 1, "testuser")

		h.handleLeaveMedia(&ClientMessage{Id: 1, LeaveMedia: &LeaveMedia{RoomId: "huddle"}, client: c})

		resp := recvMessage(t, c)
		require.NotNil(t, resp.Response)
		assert.Equal(t, 404, resp.Response.ResponseCode)
	})
}

func TestBroadcast(t *testing.T) {
	db := &database.MockChatHubRepository{}
	su := &stats.MockStatsUpdater{}
	h := newTestHub(t, db, &assistant.MockCompleter{}, su)

	var members []*Client
	for i := 1; i <= 3; i++ {
		c := newTestClient(t, h, i, "user")
		h.handleJoinConversation(&ClientMessage{
			JoinConversation: &JoinConversation{Target: RoomTarget{ChannelId: "general"}},
			client:           c,
		})
		recvMessage(t, c)
		members = append(members, c)
	}

	msg := &ServerMessage{Timestamp: Now(), SkipClient: members[0]}
	h.broadcast(RoomKey{Kind: RoomConversation, Id: "channel:general"}, msg)

	assertNoMessage(t, members[0])
	for _, c := range members[1:] {
		got := recvMessage(t, c)
		assert.Same(t, msg, got)
	}

	// absent room is a silent no-op
	h.broadcast(RoomKey{Kind: RoomConversation, Id: "channel:empty"}, msg)
}

func TestHandlePublish(t *testing.T) {
	t.Run("message is persisted and fanned out", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		defer db.AssertExpectations(t)

		stored := database.Message{
			Id:        42,
			ChannelId: "general",
			UserId:    1,
			Username:  "testuser",
			Content:   "hello",
			Kind:      "text",
			CreatedAt: Now(),
		}
		db.On("CreateMessage", database.CreateMessageParams{
			ChannelId: "general",
			UserId:    1,
			Content:   "hello",
			Kind:      "text",
		}).Return(stored, nil).Once()

		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		sender := newTestClient(t, h, 1, "testuser")
		peer := newTestClient(t, h, 2, "peer")
		for _, c := range []*Client{sender, peer} {
			h.handleJoinConversation(&ClientMessage{
				JoinConversation: &JoinConversation{Target: RoomTarget{ChannelId: "general"}},
				client:           c,
			})
			recvMessage(t, c)
		}

		h.handlePublish(&ClientMessage{
			Id:      7,
			Publish: &Publish{Target: RoomTarget{ChannelId: "general"}, Content: "hello"},
			client:  sender,
		})

		for _, c := range []*Client{sender, peer} {
			got := recvMessage(t, c)
			require.NotNil(t, got.Message, "expected a chat message")
			assert.Equal(t, 42, got.Message.Id)
			assert.Equal(t, "general", got.Message.ChannelId)
			assert.Equal(t, "hello", got.Message.Content)
			assert.Equal(t, stored.CreatedAt, got.Timestamp)
		}

		// sender is a room member, so no extra direct echo
		assertNoMessage(t, sender)
		su.AssertCalled(t, "Incr", stats.MessagesSent)
	})

	t.Run("sender outside the room still gets an echo", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateMessage", mock.Anything).Return(database.Message{Id: 1, UserId: 1, Content: "hi", Kind: "text", CreatedAt: Now()}, nil).Once()

		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		sender := newTestClient(t, h, 1, "testuser")

		h.handlePublish(&ClientMessage{
			Id:      1,
			Publish: &Publish{Target: RoomTarget{ChannelId: "general"}, Content: "hi"},
			client:  sender,
		})

		got := recvMessage(t, sender)
		require.NotNil(t, got.Message)
		assert.Equal(t, "hi", got.Message.Content)
	})

	t.Run("persistence failure reaches the sender only", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateMessage", mock.Anything).Return(database.Message{}, errors.New("db down")).Once()

		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		sender := newTestClient(t, h, 1, "testuser")
		peer := newTestClient(t, h, 2, "peer")
		for _, c := range []*Client{sender, peer} {
			h.handleJoinConversation(&ClientMessage{
				JoinConversation: &JoinConversation{Target: RoomTarget{ChannelId: "general"}},
				client:           c,
			})
			recvMessage(t, c)
		}

		h.handlePublish(&ClientMessage{
			Id:      1,
			Publish: &Publish{Target: RoomTarget{ChannelId: "general"}, Content: "hello"},
			client:  sender,
		})

		resp := recvMessage(t, sender)
		require.NotNil(t, resp.Response)
		assert.Equal(t, 500, resp.Response.ResponseCode)
		assertNoMessage(t, peer)
	})

	t.Run("blank content is rejected before persistence", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		defer db.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		sender := newTestClient(t, h, 1, "testuser")

		h.handlePublish(&ClientMessage{
			Id:      1,
			Publish: &Publish{Target: RoomTarget{ChannelId: "general"}, Content: "   "},
			client:  sender,
		})

		resp := recvMessage(t, sender)
		require.NotNil(t, resp.Response)
		assert.Equal(t, 400, resp.Response.ResponseCode)
		db.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("target must name exactly one conversation", func(t *testing.T) {
		db := &database.MockChatHubRepository{}
		su := &stats.MockStatsUpdater{}
		h := newTestHub(t, db, &assistant.MockCompleter{}, su)

		sender := newTestClient(t, h, 1, "testuser")

		h.handlePublish(&ClientMessage{
			Id:      1,
			Publish: &Publish{Target: RoomTarget{ChannelId: "general", DmId: "abc"}, Content: "hi"},
			client:  sender,
		})

		resp := recvMessage(t, sender)
		require.NotNil(t, resp.Response)
		assert.Equal(t, 400, resp.Response.ResponseCode)
	})
}

func TestHandleTyping(t *testing.T) {
	db := &database.MockChatHubRepository{}
	su := &stats.MockStatsUpdater{}
	h := newTestHub(t, db, &assistant.MockCompleter{}, su)

	sender := newTestClient(t, h, 1, "testuser")
	peer := newTestClient(t, h, 2, "peer")
	for _, c := range []*Client{sender, peer} {
		h.handleJoinConversation(&ClientMessage{
			JoinConversation: &JoinConversation{Target: RoomTarget{ChannelId: "general"}},
			client:           c,
		})
		recvMessage(t, c)
	}

	h.handleTyping(&ClientMessage{
		Typing: &Typing{Target: RoomTarget{ChannelId: "general"}, Started: true},
		client: sender,
	})

	got := recvMessage(t, peer)
	require.NotNil(t, got.Notification)
	require.NotNil(t, got.Notification.Typing)
	assert.Equal(t, 1, got.Notification.Typing.UserId)
	assert.Equal(t, "testuser", got.Notification.Typing.Username)
	assert.True(t, got.Notification.Typing.Started)
	assertNoMessage(t, sender)

	h.handleTyping(&ClientMessage{
		Typing: &Typing{Target: RoomTarget{ChannelId: "general"}, Started: false},
		client: sender,
	})

	stopped := recvMessage(t, peer)
	require.NotNil(t, stopped.Notification.Typing)
	assert.False(t, stopped.Notification.Typing.Started)
	assert.Empty(t, stopped.Notification.Typing.Username, "stop events carry no username")
}
