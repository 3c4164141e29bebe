package llm

import "github.com/m-mizutani/marten/pkg/keyword"

// FallbackAnalysis is returned for non-classification prompts when no model is
// reachable.
const FallbackAnalysis = "Analysis for query: Based on the information provided, this appears to be a product-related inquiry. " +
	"The system is currently operating in fallback mode due to LLM service issues."

// Fallback returns the rule-based answer for prompt. A classification prompt
// gets a bare category label from the keyword heuristic applied to the
// embedded query.
func Fallback(prompt string) string {
	if keyword.IsClassificationPrompt(prompt) {
		return keyword.Classify(keyword.ExtractQuery(prompt)).String()
	}
	return FallbackAnalysis
}
