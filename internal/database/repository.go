package database

type ChatHubRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccounts() ([]User, error)
	UpdateAccountStatus(accountId int, status string) error
	CreateChannel(params CreateChannelParams) (Channel, error)
	GetChannelByExternalId(externalId string) (Channel, error)
	ListChannels() ([]Channel, error)
	CreateDmThread(params CreateDmThreadParams) (DmThread, error)
	GetDmThreadByExternalId(externalId string) (DmThread, error)
	GetDmThreadByParticipants(userOneId, userTwoId int) (DmThread, error)
	ListDmThreadsForAccount(accountId int) ([]DmThread, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(params GetMessagesParams) ([]Message, error)
}
