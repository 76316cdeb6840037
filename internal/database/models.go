package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	Avatar       string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Channel struct {
	Id          int
	ExternalId  string
	Name        string
	Description string
	OwnerId     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type DmThread struct {
	Id         int
	ExternalId string
	UserOneId  int
	UserTwoId  int
	CreatedAt  time.Time
}

// Message is a stored chat message joined with its author's display
// fields. ChannelId and DmId are the external (client-facing) ids.
type Message struct {
	Id        int
	ChannelId string
	DmId      string
	UserId    int
	Username  string
	Avatar    string
	Role      string
	Content   string
	Kind      string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	Avatar       string
}

type CreateChannelParams struct {
	ExternalId  string `json:"external_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerId     int    `json:"-"`
}

type CreateDmThreadParams struct {
	ExternalId string
	UserOneId  int
	UserTwoId  int
}

// CreateMessageParams targets a conversation by external channel or DM
// thread id. Both may be empty, in which case the message is stored
// unattached (the assistant channel behaves this way).
type CreateMessageParams struct {
	ChannelId string
	DmId      string
	UserId    int
	Content   string
	Kind      string
}

type GetMessagesParams struct {
	ChannelId string
	DmId      string
	Before    int
	Limit     int
}
