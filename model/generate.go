package model

import (
	"context"
	"fmt"
	"time"

	"legalrag/types"

	"github.com/sashabaranov/go-openai"
)

const DefaultGroqBase = "https://api.groq.com/openai/v1"

// GeneratorInterface sends a full message history to a chat-completion
// endpoint and returns the assistant's reply.
type GeneratorInterface interface {
	Generate(ctx context.Context, model string, history []types.Message) (string, error)
}

// GroqGenerator talks to Groq's OpenAI-compatible chat completion API.
type GroqGenerator struct {
	client       *openai.Client
	defaultModel string
}

func NewGroqGenerator(cfg types.LLMConfig) *GroqGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	} else {
		clientCfg.BaseURL = DefaultGroqBase
	}
	return &GroqGenerator{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.Model,
	}
}

func (g *GroqGenerator) Generate(ctx context.Context, model string, history []types.Message) (string, error) {
	if model == "" {
		model = g.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, m := range history {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
