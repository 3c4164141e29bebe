package collector

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

// ErrNoSource is returned by a chain that has no sources configured
var ErrNoSource = goerr.New("no source configured")

// Attempt records the outcome of asking one source
type Attempt struct {
	Source string
	Count  int
	Err    error
}

type source[T any] struct {
	name  string
	fetch func(ctx context.Context, query string, limit int) ([]T, error)
}

// run asks sources in order and returns the first non-empty result. Empty
// results and errors both move on to the next source.
func run[T any](ctx context.Context, kind string, sources []source[T], query string, limit int) ([]T, []Attempt, error) {
	if len(sources) == 0 {
		return nil, nil, goerr.Wrap(ErrNoSource, "failed to collect", goerr.V("kind", kind))
	}

	attempts := make([]Attempt, 0, len(sources))
	for _, src := range sources {
		items, err := src.fetch(ctx, query, limit)
		attempts = append(attempts, Attempt{Source: src.name, Count: len(items), Err: err})
		if err != nil {
			logging.From(ctx).Warn("source failed", "kind", kind, "source", src.name, "error", err)
			continue
		}
		if len(items) > 0 {
			return items, attempts, nil
		}
		logging.From(ctx).Debug("source returned nothing", "kind", kind, "source", src.name)
	}

	for _, a := range attempts {
		if a.Err == nil {
			// at least one source answered, so an empty result is genuine
			return nil, attempts, nil
		}
	}
	return nil, attempts, goerr.New("all sources failed", goerr.V("kind", kind), goerr.V("query", query))
}

// SearchChain is a Searcher that falls back across several search backends
type SearchChain struct {
	sources []source[model.SearchResult]
}

func NewSearchChain() *SearchChain {
	return &SearchChain{}
}

// Add appends a backend. A nil searcher is ignored so that optional
// backends can be passed without checks.
func (c *SearchChain) Add(name string, s interfaces.Searcher) *SearchChain {
	if s == nil {
		return c
	}
	c.sources = append(c.sources, source[model.SearchResult]{name: name, fetch: s.Search})
	return c
}

func (c *SearchChain) Len() int { return len(c.sources) }

func (c *SearchChain) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	results, _, err := c.SearchWithAttempts(ctx, query, limit)
	return results, err
}

func (c *SearchChain) SearchWithAttempts(ctx context.Context, query string, limit int) ([]model.SearchResult, []Attempt, error) {
	return run(ctx, "search", c.sources, query, limit)
}

// NewsChain is a NewsSource that falls back across several news backends
type NewsChain struct {
	sources []source[model.NewsArticle]
}

func NewNewsChain() *NewsChain {
	return &NewsChain{}
}

func (c *NewsChain) Add(name string, s interfaces.NewsSource) *NewsChain {
	if s == nil {
		return c
	}
	c.sources = append(c.sources, source[model.NewsArticle]{name: name, fetch: s.SearchNews})
	return c
}

func (c *NewsChain) Len() int { return len(c.sources) }

func (c *NewsChain) SearchNews(ctx context.Context, query string, size int) ([]model.NewsArticle, error) {
	articles, _, err := c.SearchNewsWithAttempts(ctx, query, size)
	return articles, err
}

func (c *NewsChain) SearchNewsWithAttempts(ctx context.Context, query string, size int) ([]model.NewsArticle, []Attempt, error) {
	return run(ctx, "news", c.sources, query, size)
}
