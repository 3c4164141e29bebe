package research

import (
	"context"
	"strings"

	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

// Classifier maps a query to a category. It asks the language model first
// and falls back to keyword rules, so it always yields a valid category.
type Classifier struct {
	llm interfaces.LLM
}

func NewClassifier(llm interfaces.LLM) *Classifier {
	return &Classifier{llm: llm}
}

func (c *Classifier) Classify(ctx context.Context, query string) model.Category {
	// the prompt embeds the query on one line so the fallback can find it
	flat := strings.Join(strings.Fields(query), " ")

	prompt, err := render(classifyPromptTmpl, map[string]any{"Query": flat})
	if err == nil {
		raw := c.llm.Generate(ctx, prompt)
		if category, err := model.ParseCategory(raw); err == nil {
			return category
		}
		logging.From(ctx).Debug("ambiguous classification, using keywords", "response", raw)
	} else {
		logging.From(ctx).Error("failed to build classification prompt", "error", err)
	}

	return keyword.Classify(flat)
}
