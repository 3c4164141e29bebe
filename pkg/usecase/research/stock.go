package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	MsgNoSymbols   = "No stock symbols found for the query. Please use specific company names or stock symbols."
	MsgNoQuotes    = "No stock data could be retrieved for the requested symbols."
	msgNoStockNews = "No recent news found for the queried companies."
	stockNewsSize  = 3
)

type stockHandler struct {
	llm     interfaces.LLM
	quotes  interfaces.QuoteSource
	news    interfaces.NewsSource
	tickers map[string]string
}

func (h *stockHandler) Process(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error) {
	logger := logging.From(ctx)

	symbols := keyword.ResolveSymbols(query, h.tickers)
	logger.Debug("resolved symbols", "symbols", symbols)
	if len(symbols) == 0 {
		return MsgNoSymbols, nil
	}
	if h.quotes == nil {
		logger.Warn("no quote source configured")
		return MsgNoQuotes, nil
	}

	quotes := h.fetchQuotes(ctx, symbols)
	if len(quotes) == 0 {
		return MsgNoQuotes, nil
	}

	indices, err := h.quotes.Indices(ctx)
	if err != nil {
		logger.Warn("failed to fetch market indices", "error", err)
	}

	names := make([]string, 0, len(quotes))
	for _, q := range quotes {
		names = append(names, q.Name)
	}
	var articles []model.NewsArticle
	if h.news != nil {
		articles, err = h.news.SearchNews(ctx, strings.Join(names, " OR "), stockNewsSize)
		if err != nil {
			logger.Warn("failed to fetch company news", "error", err)
		}
	}

	data := map[string]any{
		"Query":         query,
		"StockContext":  stockContext(quotes),
		"MarketContext": marketContext(indices),
		"NewsContext":   stockNewsContext(articles),
		"Sources":       "Yahoo Finance • News search • LLM analysis",
	}

	logger.Debug("synthesizing", "state", StateSynthesizing, "category", category)
	prompt, err := render(stockPromptTmpl, data)
	if err != nil {
		return "", err
	}
	data["Analysis"] = h.llm.Generate(ctx, prompt)

	return render(stockReportTmpl, data)
}

// fetchQuotes fetches every symbol concurrently and keeps the symbol order.
// Symbols whose quote fails are dropped.
func (h *stockHandler) fetchQuotes(ctx context.Context, symbols []string) []model.Quote {
	results := make([]*model.Quote, len(symbols))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		eg.Go(func() error {
			q, err := h.quotes.Quote(egCtx, symbol)
			if err != nil {
				logging.From(ctx).Warn("failed to fetch quote", "symbol", symbol, "error", err)
				return nil
			}
			results[i] = q
			return nil
		})
	}
	_ = eg.Wait()

	quotes := make([]model.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}

func stockContext(quotes []model.Quote) string {
	var b strings.Builder
	for _, q := range quotes {
		fmt.Fprintf(&b, "**%s (%s)**\n\n", q.Name, q.Symbol)
		b.WriteString("**Current Trading:**\n")
		fmt.Fprintf(&b, "- Price: %s\n", money(q.Currency, q.Price))
		fmt.Fprintf(&b, "- Change: %s (%+.2f%%)\n", money(q.Currency, q.Change), q.ChangePercent)
		fmt.Fprintf(&b, "- Day Range: %s - %s\n", money(q.Currency, q.DayLow), money(q.Currency, q.DayHigh))
		fmt.Fprintf(&b, "- Volume: %s\n\n", comma(q.Volume))

		b.WriteString("**Key Metrics:**\n")
		if q.MarketCap > 0 {
			fmt.Fprintf(&b, "- Market Cap: %s\n", comma(q.MarketCap))
		}
		if q.PERatio > 0 {
			fmt.Fprintf(&b, "- P/E Ratio: %.2f\n", q.PERatio)
		}
		fmt.Fprintf(&b, "- 52-Week Range: %s - %s\n\n", money(q.Currency, q.WeekLow52), money(q.Currency, q.WeekHigh52))
	}
	return b.String()
}

func marketContext(indices []model.IndexQuote) string {
	if len(indices) == 0 {
		return "Market index data is unavailable.\n"
	}
	var b strings.Builder
	for _, idx := range indices {
		fmt.Fprintf(&b, "- %s: %.2f (%+.2f%%)\n", idx.Name, idx.Price, idx.ChangePercent)
	}
	return b.String()
}

func stockNewsContext(articles []model.NewsArticle) string {
	if len(articles) == 0 {
		return msgNoStockNews + "\n"
	}
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "• %s (%s)\n", a.Title, a.Source)
		if a.Description != "" {
			fmt.Fprintf(&b, "  %s\n", a.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func money(currency string, v float64) string {
	switch currency {
	case "", "USD":
		return fmt.Sprintf("$%.2f", v)
	case "INR":
		return fmt.Sprintf("₹%.2f", v)
	default:
		return fmt.Sprintf("%.2f %s", v, currency)
	}
}
