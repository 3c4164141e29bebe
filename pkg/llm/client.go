package llm

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/adapter"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

const (
	defaultMaxTokens = 1000
	defaultTimeout   = 60 * time.Second
)

var (
	ErrProviderNotConfigured = goerr.New("provider is not configured")
)

// Attempt is the outcome of one model call in the fallback loop
type Attempt struct {
	Model              Model
	Text               string
	Err                error
	CredentialsInvalid bool
}

// OK reports whether the attempt produced usable text
func (a Attempt) OK() bool {
	return a.Err == nil && strings.TrimSpace(a.Text) != ""
}

// Client tries an ordered list of backing models and returns the first
// success, or a deterministic fallback text when all of them fail.
type Client struct {
	generators map[Provider]adapter.Generator
	models     []Model
	maxTokens  int
	timeout    time.Duration
}

type Option func(*Client)

// WithGenerator registers the adapter serving a provider
func WithGenerator(p Provider, g adapter.Generator) Option {
	return func(c *Client) {
		c.generators[p] = g
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithTimeout bounds each model attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func New(models []Model, opts ...Option) *Client {
	c := &Client{
		generators: make(map[Provider]adapter.Generator),
		models:     models,
		maxTokens:  defaultMaxTokens,
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Models returns the configured model order
func (c *Client) Models() []Model {
	return append([]Model(nil), c.models...)
}

// Generate returns the first successful completion of prompt. preferred is an
// optional "provider:name" tried before the configured list. It never fails:
// when every model fails the result of Fallback is returned.
func (c *Client) Generate(ctx context.Context, prompt string, preferred ...string) string {
	_, text := c.Attempts(ctx, prompt, preferred...)
	return text
}

// Attempts runs the fallback loop and returns every attempt made together with
// the final text.
func (c *Client) Attempts(ctx context.Context, prompt string, preferred ...string) ([]Attempt, string) {
	logger := logging.From(ctx)

	var attempts []Attempt
	for _, m := range c.order(ctx, preferred) {
		attempt := c.try(ctx, m, prompt)
		attempts = append(attempts, attempt)

		if attempt.OK() {
			logger.Debug("model attempt succeeded", "model", m.String(), "chars", len(attempt.Text))
			return attempts, strings.TrimSpace(attempt.Text)
		}

		if attempt.CredentialsInvalid {
			logger.Error("model credentials invalid, stop trying other models",
				"model", m.String(),
				"error", attempt.Err,
			)
			break
		}

		logger.Warn("model attempt failed", "model", m.String(), "error", attempt.Err)
	}

	logger.Warn("all model attempts failed, using fallback", "attempts", len(attempts))
	return attempts, Fallback(prompt)
}

func (c *Client) try(ctx context.Context, m Model, prompt string) Attempt {
	gen, ok := c.generators[m.Provider]
	if !ok {
		return Attempt{
			Model: m,
			Err:   goerr.Wrap(ErrProviderNotConfigured, "no generator for model", goerr.V("model", m.String())),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := gen.Generate(ctx, m.Name, prompt, c.maxTokens)
	if err != nil {
		return Attempt{
			Model:              m,
			Err:                err,
			CredentialsInvalid: adapter.IsCredentialError(err),
		}
	}
	if strings.TrimSpace(text) == "" {
		return Attempt{Model: m, Err: adapter.ErrEmptyResponse}
	}
	return Attempt{Model: m, Text: text}
}

// order puts the preferred model first and removes duplicates
func (c *Client) order(ctx context.Context, preferred []string) []Model {
	var models []Model
	seen := make(map[Model]bool)

	for _, p := range preferred {
		if p == "" {
			continue
		}
		m, err := ParseModel(p)
		if err != nil {
			logging.From(ctx).Warn("ignore invalid preferred model", "model", p, "error", err)
			continue
		}
		if !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}

	for _, m := range c.models {
		if !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}
	return models
}
