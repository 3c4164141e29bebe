package research

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/policy"
)

// Handler produces the report of one category. It may populate mem so that
// later questions can be answered from the collected research.
type Handler interface {
	Process(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error)

func (f HandlerFunc) Process(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error) {
	return f(ctx, query, category, mem)
}

// UseCase routes queries to category handlers and answers follow-up
// questions from the research memory of each session.
type UseCase struct {
	llm        interfaces.LLM
	classifier *Classifier
	store      *memory.Store
	policy     *policy.Engine
	handlers   map[model.Category]Handler

	search  interfaces.Searcher
	news    interfaces.NewsSource
	quotes  interfaces.QuoteSource
	videos  interfaces.VideoSource
	shopper interfaces.Shopper
	fetcher interfaces.PageFetcher
	tickers map[string]string

	overrides map[model.Category]Handler
	now       func() time.Time
}

type Option func(*UseCase)

func WithSearcher(s interfaces.Searcher) Option {
	return func(uc *UseCase) { uc.search = s }
}

func WithNewsSource(s interfaces.NewsSource) Option {
	return func(uc *UseCase) { uc.news = s }
}

func WithQuoteSource(s interfaces.QuoteSource) Option {
	return func(uc *UseCase) { uc.quotes = s }
}

func WithVideoSource(s interfaces.VideoSource) Option {
	return func(uc *UseCase) { uc.videos = s }
}

func WithShopper(s interfaces.Shopper) Option {
	return func(uc *UseCase) { uc.shopper = s }
}

func WithPageFetcher(f interfaces.PageFetcher) Option {
	return func(uc *UseCase) { uc.fetcher = f }
}

// WithTickers adds company name to symbol entries on top of the defaults
func WithTickers(tickers map[string]string) Option {
	return func(uc *UseCase) {
		for name, symbol := range tickers {
			uc.tickers[name] = symbol
		}
	}
}

func WithMemory(store *memory.Store) Option {
	return func(uc *UseCase) { uc.store = store }
}

func WithPolicy(p *policy.Engine) Option {
	return func(uc *UseCase) { uc.policy = p }
}

// WithHandler replaces the built-in handler of category
func WithHandler(category model.Category, h Handler) Option {
	return func(uc *UseCase) { uc.overrides[category] = h }
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// New builds the use case. Every category must end up with a handler.
func New(llm interfaces.LLM, opts ...Option) (*UseCase, error) {
	if llm == nil {
		return nil, goerr.New("language model client is required")
	}

	uc := &UseCase{
		llm:       llm,
		tickers:   keyword.DefaultTickers(),
		overrides: make(map[model.Category]Handler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.store == nil {
		uc.store = memory.New(memory.DefaultTTL)
	}

	uc.classifier = NewClassifier(llm)
	uc.handlers = map[model.Category]Handler{
		model.CategoryStocks: &stockHandler{
			llm:     llm,
			quotes:  uc.quotes,
			news:    uc.news,
			tickers: uc.tickers,
		},
		model.CategoryNews: &newsHandler{
			llm:  llm,
			news: uc.news,
		},
		model.CategoryProduct: &productHandler{
			llm:     llm,
			search:  uc.search,
			videos:  uc.videos,
			shopper: uc.shopper,
			fetcher: uc.fetcher,
		},
		model.CategoryGeneral: &generalHandler{
			llm:    llm,
			search: uc.search,
		},
	}
	for category, h := range uc.overrides {
		uc.handlers[category] = h
	}

	for _, category := range model.Categories() {
		if h, ok := uc.handlers[category]; !ok || h == nil {
			return nil, goerr.New("no handler for category", goerr.V("category", category))
		}
	}

	return uc, nil
}

// ClearMemory drops the research session of id
func (uc *UseCase) ClearMemory(id model.SessionID) {
	uc.store.Clear(id)
}

// MemoryStatus reports the research session of id
func (uc *UseCase) MemoryStatus(id model.SessionID) memory.Status {
	return uc.store.Status(id)
}

// Sources lists which collectors are configured
func (uc *UseCase) Sources() map[string]bool {
	return map[string]bool{
		"search":   uc.search != nil,
		"news":     uc.news != nil,
		"quotes":   uc.quotes != nil,
		"videos":   uc.videos != nil,
		"shopping": uc.shopper != nil,
		"scraper":  uc.fetcher != nil,
		"policy":   uc.policy.Enabled(),
	}
}
