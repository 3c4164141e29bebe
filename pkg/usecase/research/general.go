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

const generalSearchLimit = 5

// generalHandler answers anything else. Search results are optional
// background, so it never ends with a no-data message.
type generalHandler struct {
	llm    interfaces.LLM
	search interfaces.Searcher
}

func (h *generalHandler) Process(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error) {
	var results []model.SearchResult
	if h.search != nil {
		var err error
		results, err = h.search.Search(ctx, query, generalSearchLimit)
		if err != nil {
			logging.From(ctx).Warn("general search failed", "error", err)
		}
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.Snippet, r.Link)
	}

	data := map[string]any{
		"Query":   query,
		"Context": b.String(),
	}
	prompt, err := render(generalPromptTmpl, data)
	if err != nil {
		return "", err
	}
	data["Analysis"] = h.llm.Generate(ctx, prompt)
	if len(results) > 0 {
		data["Sources"] = "Web search • LLM analysis"
	}

	return render(generalReportTmpl, data)
}
