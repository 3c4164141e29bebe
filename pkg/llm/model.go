package llm

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
)

var (
	ErrInvalidModel = goerr.New("invalid model identifier")
)

// Model identifies a backing model as "provider:name"
type Model struct {
	Provider Provider
	Name     string
}

func (m Model) String() string {
	return string(m.Provider) + ":" + m.Name
}

// ParseModel parses "provider:name". The provider must be one of gemini,
// claude or openai.
func ParseModel(s string) (Model, error) {
	provider, name, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" {
		return Model{}, goerr.Wrap(ErrInvalidModel, "model must be provider:name", goerr.V("model", s))
	}

	p := Provider(strings.ToLower(provider))
	switch p {
	case ProviderGemini, ProviderClaude, ProviderOpenAI:
	default:
		return Model{}, goerr.Wrap(ErrInvalidModel, "unknown provider", goerr.V("model", s), goerr.V("provider", provider))
	}

	return Model{Provider: p, Name: name}, nil
}

// ParseModels parses a comma separated model list, skipping blank items
func ParseModels(s string) ([]Model, error) {
	var models []Model
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		m, err := ParseModel(item)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// DefaultModels is the ordered list of alternates tried after the preferred
// model.
func DefaultModels() []Model {
	return []Model{
		{Provider: ProviderGemini, Name: "gemini-2.5-flash"},
		{Provider: ProviderClaude, Name: "claude-sonnet-4-5"},
		{Provider: ProviderClaude, Name: "claude-3-5-haiku-latest"},
		{Provider: ProviderOpenAI, Name: "gpt-4o-mini"},
	}
}
