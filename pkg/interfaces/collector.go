package interfaces

import (
	"context"

	"github.com/m-mizutani/marten/pkg/model"
)

// LLM produces free-text completions. Implementations never fail: when no
// backing model answers they return a deterministic fallback text.
type LLM interface {
	Generate(ctx context.Context, prompt string, preferred ...string) string
}

// Searcher runs a web search
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error)
}

// NewsSource searches recent news articles
type NewsSource interface {
	SearchNews(ctx context.Context, query string, size int) ([]model.NewsArticle, error)
}

// QuoteSource provides stock quotes and market index levels
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*model.Quote, error)
	Indices(ctx context.Context) ([]model.IndexQuote, error)
}

// VideoSource searches video reviews and their transcripts
type VideoSource interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]model.Video, error)
	Transcript(ctx context.Context, link string) (string, error)
}

// PageFetcher downloads a page and extracts its readable text
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*model.Page, error)
}

// Shopper looks up e-commerce offers for a product
type Shopper interface {
	Offers(ctx context.Context, query string, limit int) ([]model.Offer, error)
}
