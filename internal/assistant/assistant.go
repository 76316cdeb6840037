package assistant

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = openai.GPT3Dot5Turbo
	defaultMaxTokens = 150
	systemPrompt     = "You are a helpful AI assistant in a chat platform. Be concise and friendly."
)

// Completer produces a reply to a user's message. Implementations may
// block for an arbitrary duration; callers must not hold hub locks and
// should bound the call with the context.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAICompleter(apiKey string) *OpenAICompleter {
	return &OpenAICompleter{
		client:    openai.NewClient(apiKey),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
