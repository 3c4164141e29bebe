// Package keyword holds the deterministic text heuristics used for routing.
// Every function here is pure so routing keeps working without any language
// model.
package keyword

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/m-mizutani/marten/pkg/model"
)

// Rule maps a set of markers to an outcome. Markers match anywhere in the
// lower-cased text, so "laptop" also matches "laptops". Words must match a
// whole token and are meant for markers too short to test as substrings.
type Rule[T any] struct {
	Markers []string
	Words   []string
	Outcome T
}

// Match reports whether any marker or word of the rule appears in text.
func (r Rule[T]) Match(text string) bool {
	return containsSubstring(text, r.Markers) || containsAny(text, r.Words)
}

// categoryRules are tested in order and the first match wins.
var categoryRules = []Rule[model.Category]{
	{
		Outcome: model.CategoryProduct,
		Markers: []string{
			"mobile", "phone", "smartphone", "laptop", "tablet", "headphones", "earbuds", "smartwatch",
			"product", "buy", "camera", "display", "review", "unboxing", "specification",
		},
	},
	{
		Outcome: model.CategoryStocks,
		Markers: []string{
			"stock", "share price", "market", "trading", "investment", "earnings", "ticker", "nasdaq", "nyse",
		},
	},
	{
		Outcome: model.CategoryNews,
		Markers: []string{"news", "breaking", "latest", "headline"},
	},
}

// Classify returns the category of the first keyword group matching query,
// or GENERAL when nothing matches.
func Classify(query string) model.Category {
	for _, rule := range categoryRules {
		if rule.Match(query) {
			return rule.Outcome
		}
	}
	return model.CategoryGeneral
}

// ClassificationInstruction opens every classification prompt.
const ClassificationInstruction = "Classify this query into one of these categories"

var quotedQuery = regexp.MustCompile(`(?m)^\s*Query:\s*"(.*)"\s*$`)

// IsClassificationPrompt reports whether prompt is a classification request:
// it starts with the classification instruction and carries a quoted query
// line. Text merely mentioning classification does not count.
func IsClassificationPrompt(prompt string) bool {
	if !strings.HasPrefix(strings.TrimSpace(prompt), ClassificationInstruction) {
		return false
	}
	return quotedQuery.MatchString(prompt)
}

// ExtractQuery returns the quoted query line embedded in a classification
// prompt, or the whole prompt when there is none.
func ExtractQuery(prompt string) string {
	if m := quotedQuery.FindStringSubmatch(prompt); len(m) == 2 {
		return m[1]
	}
	return prompt
}

var reviewIntent = Rule[bool]{
	Markers: []string{"review", "unboxing", "versus"},
	Words:   []string{"vs"},
	Outcome: true,
}

// HasReviewIntent reports whether the query asks for reviews or a comparison.
func HasReviewIntent(query string) bool {
	return reviewIntent.Match(query)
}

var genericSubjectWords = map[string]bool{
	"review":   true,
	"reviews":  true,
	"analysis": true,
	"purchase": true,
}

// NormalizeSubject strips generic research words from query and collapses
// whitespace. The original query is returned when nothing else is left.
func NormalizeSubject(query string) string {
	var kept []string
	for _, w := range strings.Fields(query) {
		if genericSubjectWords[strings.ToLower(strings.Trim(w, ".,!?:;"))] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(query)
	}
	return strings.Join(kept, " ")
}

// OptimizeSearchQuery phrases query for a web search in the given category.
func OptimizeSearchQuery(query string, category model.Category) string {
	switch category {
	case model.CategoryStocks:
		return "stock market " + query + " financial news earnings"
	case model.CategoryNews:
		return "breaking news " + query + " latest updates"
	case model.CategoryProduct:
		return "product " + query + " reviews specifications price"
	default:
		return query
	}
}

// Tokens lower-cases text and splits it on anything that is not a letter or
// a digit.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsSubstring(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// containsAny matches phrases (markers with a space) as substrings and single
// words as whole tokens.
func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	tokens := make(map[string]bool)
	for _, t := range Tokens(text) {
		tokens[t] = true
	}

	for _, m := range markers {
		if strings.Contains(m, " ") {
			if strings.Contains(lower, m) {
				return true
			}
			continue
		}
		if tokens[m] {
			return true
		}
	}
	return false
}
