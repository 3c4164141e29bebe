package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

const (
	MsgNoNews       = "No real-time news data found for the query."
	newsSize        = 5
	newsContentSize = 300
)

type newsHandler struct {
	llm  interfaces.LLM
	news interfaces.NewsSource
}

func (h *newsHandler) Process(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error) {
	if h.news == nil {
		logging.From(ctx).Warn("no news source configured")
		return MsgNoNews, nil
	}

	articles, err := h.news.SearchNews(ctx, query, newsSize)
	if err != nil {
		logging.From(ctx).Warn("failed to search news", "error", err)
	}
	if len(articles) == 0 {
		return MsgNoNews, nil
	}

	data := map[string]any{
		"Query":       query,
		"Category":    category,
		"NewsContext": newsContext(articles),
		"Sources":     "News search • LLM analysis",
	}

	prompt, err := render(newsPromptTmpl, data)
	if err != nil {
		return "", err
	}
	data["Analysis"] = h.llm.Generate(ctx, prompt)

	return render(newsReportTmpl, data)
}

func newsContext(articles []model.NewsArticle) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, "   Source: %s\n", a.Source)
		}
		if a.PublishedAt != "" {
			fmt.Fprintf(&b, "   Published: %s\n", a.PublishedAt)
		}
		if a.Description != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", a.Description)
		}
		if a.Content != "" {
			fmt.Fprintf(&b, "   Content: %s\n", clip(a.Content, newsContentSize))
		}
		if a.Link != "" {
			fmt.Fprintf(&b, "   URL: %s\n", a.Link)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// clip shortens s to n runes
func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
