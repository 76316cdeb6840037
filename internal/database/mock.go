package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatHubRepository struct {
	mock.Mock
}

func (m *MockChatHubRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatHubRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatHubRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatHubRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatHubRepository) ListAccounts() ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatHubRepository) UpdateAccountStatus(accountId int, status string) error {
	args := m.Called(accountId, status)
	return args.Error(0)
}
func (m *MockChatHubRepository) CreateChannel(params CreateChannelParams) (Channel, error) {
	args := m.Called(params)
	return args.Get(0).(Channel), args.Error(1)
}
func (m *MockChatHubRepository) GetChannelByExternalId(externalId string) (Channel, error) {
	args := m.Called(externalId)
	return args.Get(0).(Channel), args.Error(1)
}
func (m *MockChatHubRepository) ListChannels() ([]Channel, error) {
	args := m.Called()
	return args.Get(0).([]Channel), args.Error(1)
}
func (m *MockChatHubRepository) CreateDmThread(params CreateDmThreadParams) (DmThread, error) {
	args := m.Called(params)
	return args.Get(0).(DmThread), args.Error(1)
}
func (m *MockChatHubRepository) GetDmThreadByExternalId(externalId string) (DmThread, error) {
	args := m.Called(externalId)
	return args.Get(0).(DmThread), args.Error(1)
}
func (m *MockChatHubRepository) GetDmThreadByParticipants(userOneId, userTwoId int) (DmThread, error) {
	args := m.Called(userOneId, userTwoId)
	return args.Get(0).(DmThread), args.Error(1)
}
func (m *MockChatHubRepository) ListDmThreadsForAccount(accountId int) ([]DmThread, error) {
	args := m.Called(accountId)
	return args.Get(0).([]DmThread), args.Error(1)
}
func (m *MockChatHubRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatHubRepository) GetMessages(params GetMessagesParams) ([]Message, error) {
	args := m.Called(params)
	return args.Get(0).([]Message), args.Error(1)
}
