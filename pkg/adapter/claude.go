package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

// ClaudeClient generates text with the Anthropic Messages API
type ClaudeClient struct {
	client *anthropic.Client
}

// NewClaude creates a new Claude API client
func NewClaude(apiKey string) *ClaudeClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &ClaudeClient{
		client: &client,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create message", goerr.V("model", model))
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.AsText().Text)
		}
	}

	if len(texts) == 0 {
		return "", goerr.Wrap(ErrEmptyResponse, "claude returned no text", goerr.V("model", model))
	}
	return strings.Join(texts, "\n"), nil
}
