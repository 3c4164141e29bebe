package collector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/collector"
	"github.com/m-mizutani/marten/pkg/model"
)

type mockSearcher struct {
	results []model.SearchResult
	err     error
	calls   int
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	m.calls++
	return m.results, m.err
}

func (m *mockSearcher) CallCount() int { return m.calls }

type mockNews struct {
	articles []model.NewsArticle
	err      error
	calls    int
}

func (m *mockNews) SearchNews(ctx context.Context, query string, size int) ([]model.NewsArticle, error) {
	m.calls++
	return m.articles, m.err
}

func TestSearchChainFallsBackOnError(t *testing.T) {
	primary := &mockSearcher{err: goerr.New("quota exceeded")}
	secondary := &mockSearcher{results: []model.SearchResult{{Title: "hit", Link: "https://example.com"}}}
	never := &mockSearcher{results: []model.SearchResult{{Title: "unused"}}}

	chain := collector.NewSearchChain().
		Add("serpapi", primary).
		Add("duckduckgo", secondary).
		Add("mcp", never)

	results, attempts, err := chain.SearchWithAttempts(context.Background(), "pixel 9", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].Title, "hit")
	gt.A(t, attempts).Length(2)
	gt.Equal(t, attempts[0].Source, "serpapi")
	gt.Error(t, attempts[0].Err)
	gt.Equal(t, attempts[1].Count, 1)
	gt.Equal(t, never.CallCount(), 0)
}

func TestSearchChainFallsBackOnEmpty(t *testing.T) {
	empty := &mockSearcher{}
	second := &mockSearcher{results: []model.SearchResult{{Title: "hit"}}}

	results, err := collector.NewSearchChain().Add("a", empty).Add("b", second).Search(context.Background(), "q", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, empty.CallCount(), 1)
}

func TestSearchChainAllEmptyIsNotAnError(t *testing.T) {
	results, err := collector.NewSearchChain().
		Add("a", &mockSearcher{err: goerr.New("down")}).
		Add("b", &mockSearcher{}).
		Search(context.Background(), "q", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
}

func TestSearchChainAllFailed(t *testing.T) {
	_, attempts, err := collector.NewSearchChain().
		Add("a", &mockSearcher{err: goerr.New("down")}).
		Add("b", &mockSearcher{err: goerr.New("down too")}).
		SearchWithAttempts(context.Background(), "q", 5)
	gt.Error(t, err)
	gt.A(t, attempts).Length(2)
}

func TestSearchChainIgnoresNilAndEmptyChain(t *testing.T) {
	chain := collector.NewSearchChain().Add("none", nil)
	gt.Equal(t, chain.Len(), 0)

	_, err := chain.Search(context.Background(), "q", 5)
	gt.True(t, errors.Is(err, collector.ErrNoSource))
}

func TestNewsChain(t *testing.T) {
	first := &mockNews{err: goerr.New("invalid key")}
	second := &mockNews{articles: []model.NewsArticle{{Title: "Tesla earnings"}}}

	chain := collector.NewNewsChain().Add("newsdata", first).Add("serpapi", second)
	gt.Equal(t, chain.Len(), 2)

	articles, err := chain.SearchNews(context.Background(), "tesla", 3)
	gt.NoError(t, err)
	gt.A(t, articles).Length(1)
	gt.Equal(t, first.calls, 1)
	gt.Equal(t, second.calls, 1)
}
