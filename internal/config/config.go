package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	DefaultAssistantChannel = "assistant"
	DefaultAssistantMention = "@assistant"
	DefaultAssistantName    = "Assistant"
	DefaultAssistantTimeout = 30 * time.Second
)

type Config struct {
	ServerAddr       string
	DatabaseDSN      string
	SigningKey       []byte
	AllowedOrigins   []string
	AssistantAPIKey  string
	AssistantChannel string
	AssistantMention string
	AssistantName    string
	AssistantTimeout time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, assistantAPIKey string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:       serverAddr,
		DatabaseDSN:      databaseDSN,
		SigningKey:       signingKey,
		AllowedOrigins:   allowedOrigins,
		AssistantAPIKey:  assistantAPIKey,
		AssistantChannel: DefaultAssistantChannel,
		AssistantMention: DefaultAssistantMention,
		AssistantName:    DefaultAssistantName,
		AssistantTimeout: DefaultAssistantTimeout,
	}, nil
}
