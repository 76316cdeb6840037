package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/npezzotti/go-chathub/internal/types"
)

// Signal kinds relayed between media room members.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
	SignalLeave     = "leave"
)

// RoomTarget addresses a conversation: exactly one of ChannelId or DmId
// must be set.
type RoomTarget struct {
	ChannelId string `json:"channel_id,omitempty"`
	DmId      string `json:"dm_id,omitempty"`
}

func (t RoomTarget) Validate() error {
	if (t.ChannelId == "") == (t.DmId == "") {
		return fmt.Errorf("exactly one of channel_id or dm_id must be set")
	}
	return nil
}

// ConversationId returns the fanout room id for the target, or "" if the
// target is invalid.
func (t RoomTarget) ConversationId() string {
	if t.Validate() != nil {
		return ""
	}
	if t.ChannelId != "" {
		return "channel:" + t.ChannelId
	}
	return "dm:" + t.DmId
}

// ClientMessage is the closed set of events a connection may send.
// Exactly one variant field is non-nil.
type ClientMessage struct {
	Id               int               `json:"id,omitempty"`
	Announce         *Announce         `json:"announce,omitempty"`
	JoinConversation *JoinConversation `json:"join_conversation,omitempty"`
	JoinMedia        *JoinMedia        `json:"join_media,omitempty"`
	LeaveMedia       *LeaveMedia       `json:"leave_media,omitempty"`
	Publish          *Publish          `json:"publish,omitempty"`
	Typing           *Typing           `json:"typing,omitempty"`
	Signal           *Signal           `json:"signal,omitempty"`
	client           *Client
}

type Announce struct {
	UserId   int    `json:"user_id"`
	Username string `json:"username"`
}

type JoinConversation struct {
	Target RoomTarget `json:"target"`
}

type JoinMedia struct {
	RoomId string `json:"room_id"`
}

type LeaveMedia struct {
	RoomId string `json:"room_id"`
}

type Publish struct {
	Target  RoomTarget `json:"target"`
	Content string     `json:"content"`
	Kind    string     `json:"kind,omitempty"`
}

type Typing struct {
	Target  RoomTarget `json:"target"`
	Started bool       `json:"started"`
}

// Signal is a directed session-negotiation message. The payload is
// relayed verbatim; the hub never interprets it.
type Signal struct {
	Kind    string          `json:"kind"`
	RoomId  string          `json:"room_id"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the envelope delivered to connections. SkipClient is
// excluded from broadcasts of this message.
type ServerMessage struct {
	Id           int            `json:"id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Response     *Response      `json:"response,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	Signal       *SignalEvent   `json:"signal,omitempty"`
	SkipClient   *Client        `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	UserStatus *UserStatusEvent `json:"user_status,omitempty"`
	Typing     *TypingEvent     `json:"typing,omitempty"`
	PeerJoined *PeerEvent       `json:"peer_joined,omitempty"`
	PeerLeft   *PeerEvent       `json:"peer_left,omitempty"`
}

type UserStatusEvent struct {
	UserId int          `json:"user_id"`
	Status types.Status `json:"status"`
}

type TypingEvent struct {
	ChannelId string `json:"channel_id,omitempty"`
	DmId      string `json:"dm_id,omitempty"`
	UserId    int    `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Started   bool   `json:"started"`
}

// PeerEvent announces a media room member joining or leaving.
type PeerEvent struct {
	RoomId       string `json:"room_id"`
	ConnectionId string `json:"connection_id"`
	UserId       int    `json:"user_id"`
}

// SignalEvent is a relayed Signal stamped with the sender's identity.
type SignalEvent struct {
	Kind    string          `json:"kind"`
	RoomId  string          `json:"room_id"`
	From    string          `json:"from"`
	UserId  int             `json:"user_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrNotAnnounced(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusUnauthorized,
			Error:        "connection has not announced an identity",
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrTargetGone(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusGone,
			Error:        "target connection is gone",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
