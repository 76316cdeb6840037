package types

import (
	"time"
)

// Status is a user's presence status. The hub only ever sets Online and
// Offline; Away and Busy are set through the account API and left alone.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
)

// Message kinds. Assistant replies are synthesized by the hub and never
// persisted.
const (
	MessageKindText      = "text"
	MessageKindAssistant = "assistant"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Role         string    `json:"role,omitempty"`
	Status       Status    `json:"status,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Channel struct {
	Id          int       `json:"id"`
	ExternalId  string    `json:"external_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerId     int       `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type DmThread struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	UserOneId  int       `json:"user_one_id"`
	UserTwoId  int       `json:"user_two_id"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Message is the enriched form of a chat message as broadcast to room
// members: the server-issued id and timestamp plus denormalized author
// display fields.
type Message struct {
	Id        int       `json:"id"`
	ChannelId string    `json:"channel_id,omitempty"`
	DmId      string    `json:"dm_id,omitempty"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}
