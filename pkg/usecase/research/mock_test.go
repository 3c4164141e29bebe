package research_test

import (
	"context"
	"sync"

	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/llm"
	"github.com/m-mizutani/marten/pkg/model"
)

// mockLLM records prompts. Without a generate func it behaves like a client
// whose every backing model is down.
type mockLLM struct {
	mu       sync.Mutex
	generate func(prompt string) string
	prompts  []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, preferred ...string) string {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.generate != nil {
		return m.generate(prompt)
	}
	return llm.Fallback(prompt)
}

func (m *mockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// SynthesisCount counts calls other than classification
func (m *mockLLM) SynthesisCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, p := range m.prompts {
		if !keyword.IsClassificationPrompt(p) {
			n++
		}
	}
	return n
}

type counter struct {
	mu    sync.Mutex
	calls int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *counter) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type mockSearcher struct {
	counter
	search func(query string, limit int) ([]model.SearchResult, error)
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	m.inc()
	if m.search == nil {
		return nil, nil
	}
	return m.search(query, limit)
}

type mockNews struct {
	counter
	searchNews func(query string, size int) ([]model.NewsArticle, error)
}

func (m *mockNews) SearchNews(ctx context.Context, query string, size int) ([]model.NewsArticle, error) {
	m.inc()
	if m.searchNews == nil {
		return nil, nil
	}
	return m.searchNews(query, size)
}

type mockQuotes struct {
	counter
	quote   func(symbol string) (*model.Quote, error)
	indices func() ([]model.IndexQuote, error)
}

func (m *mockQuotes) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	m.inc()
	return m.quote(symbol)
}

func (m *mockQuotes) Indices(ctx context.Context) ([]model.IndexQuote, error) {
	m.inc()
	if m.indices == nil {
		return nil, nil
	}
	return m.indices()
}

type mockVideos struct {
	counter
	videos []model.Video
}

func (m *mockVideos) SearchVideos(ctx context.Context, query string, limit int) ([]model.Video, error) {
	m.inc()
	return append([]model.Video(nil), m.videos...), nil
}

func (m *mockVideos) Transcript(ctx context.Context, link string) (string, error) {
	m.inc()
	return "transcript of " + link, nil
}

type mockShopper struct {
	counter
	offers []model.Offer
}

func (m *mockShopper) Offers(ctx context.Context, query string, limit int) ([]model.Offer, error) {
	m.inc()
	return m.offers, nil
}

type mockFetcher struct {
	counter
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	m.inc()
	return &model.Page{URL: url, Title: "page " + url, Content: "scraped body of " + url, Scraped: true}, nil
}
