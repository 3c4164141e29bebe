package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient generates text with the OpenAI chat completions API
type OpenAIClient struct {
	client *openai.Client
}

type OpenAIOption func(*[]option.RequestOption)

// WithOpenAIBaseURL points the client at an OpenAI compatible endpoint
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		opt(&reqOpts)
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAIClient{client: &client}
}

func (o *OpenAIClient) Generate(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", model))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", goerr.Wrap(ErrEmptyResponse, "openai returned no text", goerr.V("model", model))
	}
	return resp.Choices[0].Message.Content, nil
}
