package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
}

type geminiConfig struct {
	apiKey   string
	project  string
	location string
}

type GeminiOption func(*geminiConfig)

// WithGeminiAPIKey uses the Gemini Developer API with an API key
func WithGeminiAPIKey(apiKey string) GeminiOption {
	return func(c *geminiConfig) {
		c.apiKey = apiKey
	}
}

// WithVertexAI uses Vertex AI in the given project and location
func WithVertexAI(project, location string) GeminiOption {
	return func(c *geminiConfig) {
		c.project = project
		c.location = location
	}
}

func NewGemini(ctx context.Context, opts ...GeminiOption) (*GeminiClient, error) {
	var cfg geminiConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.apiKey == "" {
		if cfg.project == "" {
			return nil, goerr.New("either API key or project is required for Gemini")
		}
		cc = &genai.ClientConfig{
			Project:  cfg.project,
			Location: cfg.location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", model))
	}

	var texts []string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				texts = append(texts, part.Text)
			}
		}
		break
	}

	if len(texts) == 0 {
		return "", goerr.Wrap(ErrEmptyResponse, "gemini returned no text", goerr.V("model", model))
	}
	return strings.Join(texts, ""), nil
}
