package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message.  Role must be one of: "system", "user",
// or "assistant".
type Message struct {
	Role    string
	Content string
}

// Options carries the sampling parameters of a single completion.
type Options struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Client returns one non-streamed completion for the given messages.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// ErrEmptyCompletion is returned when the service answers without choices.
var ErrEmptyCompletion = errors.New("llm returned no choices")

// OpenAIClient talks to any OpenAI-compatible chat completion API.  By default
// it is pointed at Groq.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs a client for the given API key, base URL and
// model.  An empty baseURL keeps the library default (api.openai.com).
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends the messages to the chat completion endpoint and returns the
// content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    oaMsgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// UserPrompt wraps a single prompt as the only user message.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: openai.ChatMessageRoleUser, Content: prompt}}
}
