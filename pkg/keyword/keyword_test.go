package keyword_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/model"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		query string
		want  model.Category
	}{
		{"Tesla stock price", model.CategoryStocks},
		{"Pixel 9 review", model.CategoryProduct},
		{"best laptop to buy", model.CategoryProduct},
		{"market outlook for chip makers", model.CategoryStocks},
		{"latest headlines in Europe", model.CategoryNews},
		{"breaking news about elections", model.CategoryNews},
		{"asdkjalksdj", model.CategoryGeneral},
		{"how do rainbows form", model.CategoryGeneral},
		// product keywords are checked before stock keywords
		{"phone market share", model.CategoryProduct},
		// stock keywords are checked before news keywords
		{"stock market news", model.CategoryStocks},
		// markers match inside longer words
		{"best gaming laptops under 1000", model.CategoryProduct},
		{"iPhone 16 reviews", model.CategoryProduct},
		{"top smartphones this year", model.CategoryProduct},
		{"semiconductor stocks rally", model.CategoryStocks},
		{"market prospects for chip makers", model.CategoryStocks},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			gt.Equal(t, keyword.Classify(tc.query), tc.want)
		})
	}
}

func TestClassifyTotal(t *testing.T) {
	inputs := []string{"a", "?", "日本語のクエリ", "   x   ", "1234", "STOCK", "NEWS!!!"}
	valid := map[model.Category]bool{}
	for _, c := range model.Categories() {
		valid[c] = true
	}

	for _, in := range inputs {
		gt.True(t, valid[keyword.Classify(in)]).Describe(in)
	}
}

func TestExtractQuery(t *testing.T) {
	prompt := "Classify this query into one of these categories:\n1. STOCKS\n\nQuery: \"Tesla stock price\"\n\nRespond with only: STOCKS"
	gt.Equal(t, keyword.ExtractQuery(prompt), "Tesla stock price")
	gt.Equal(t, keyword.ExtractQuery("no query line"), "no query line")
}

func TestIsClassificationPrompt(t *testing.T) {
	testCases := []struct {
		name   string
		prompt string
		want   bool
	}{
		{"classification request", "Classify this query into one of these categories:\n\nQuery: \"Pixel 9\"\n", true},
		{"leading whitespace", "\n  Classify this query into one of these categories:\nQuery: \"Pixel 9\"", true},
		{"no query line", "Classify this query into one of these categories:\n1. STOCKS", false},
		{"plain summary", "Summarize the following news", false},
		{"evidence mentions classified", "Analyze these news articles\n1. Court rules on classified documents case", false},
		{"instruction not at start", "Articles:\nClassify this query into one of these categories\nQuery: \"x\"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, keyword.IsClassificationPrompt(tc.prompt), tc.want)
		})
	}
}

func TestHasReviewIntent(t *testing.T) {
	gt.True(t, keyword.HasReviewIntent("Pixel 9 review"))
	gt.True(t, keyword.HasReviewIntent("iPhone 16 unboxing"))
	gt.True(t, keyword.HasReviewIntent("Pixel 9 vs iPhone 16"))
	gt.True(t, keyword.HasReviewIntent("Galaxy S24 reviews"))
	gt.False(t, keyword.HasReviewIntent("canvas and vsync settings"))
	gt.False(t, keyword.HasReviewIntent("Pixel 9 specifications"))
	gt.False(t, keyword.HasReviewIntent("canvas bags"))
}

func TestNormalizeSubject(t *testing.T) {
	gt.Equal(t, keyword.NormalizeSubject("Pixel 9 review"), "Pixel 9")
	gt.Equal(t, keyword.NormalizeSubject("  Galaxy S24   analysis  "), "Galaxy S24")
	gt.Equal(t, keyword.NormalizeSubject("purchase MacBook Air Review"), "MacBook Air")
	gt.Equal(t, keyword.NormalizeSubject("review"), "review")
}

func TestOptimizeSearchQuery(t *testing.T) {
	gt.Equal(t, keyword.OptimizeSearchQuery("pixel 9", model.CategoryProduct), "product pixel 9 reviews specifications price")
	gt.Equal(t, keyword.OptimizeSearchQuery("tesla", model.CategoryStocks), "stock market tesla financial news earnings")
	gt.Equal(t, keyword.OptimizeSearchQuery("election", model.CategoryNews), "breaking news election latest updates")
	gt.Equal(t, keyword.OptimizeSearchQuery("rainbows", model.CategoryGeneral), "rainbows")
}

func TestIsNewResearch(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		subject string
		want    bool
	}{
		{"attribute word", "how is the battery", "Pixel 9", false},
		{"question word", "what about the camera", "Pixel 9", false},
		{"other brand", "iPhone 16 review", "Pixel 9", true},
		{"same brand", "Pixel 9 pro", "Pixel 9", false},
		{"explicit phrase", "analysis of foldables", "Pixel 9", true},
		{"default follow-up", "tell me more", "Pixel 9", false},
		// follow-up markers win over a brand change
		{"marker beats brand", "how does the iPhone camera compare", "Pixel 9", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, keyword.IsNewResearch(tc.query, tc.subject), tc.want)
		})
	}
}

func TestResolveSymbols(t *testing.T) {
	tickers := keyword.DefaultTickers()

	testCases := []struct {
		query string
		want  []string
	}{
		{"Tesla stock price", []string{"TSLA"}},
		{"compare apple and microsoft shares", []string{"AAPL", "MSFT"}},
		{"Is NVDA overvalued?", []string{"NVDA"}},
		{"google alphabet GOOGL", []string{"GOOGL"}},
		{"apple, tesla, nvidia, amazon", []string{"AAPL", "TSLA", "NVDA"}},
		{"what about $PLTR", []string{"PLTR"}},
		{"reliance industries", []string{"RELIANCE.NS"}},
		{"weather tomorrow", nil},
		// lower-case tokens are not treated as direct symbols
		{"aapl", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			got := keyword.ResolveSymbols(tc.query, tickers)
			gt.A(t, got).Length(len(tc.want))
			for i := range tc.want {
				gt.Equal(t, got[i], tc.want[i])
			}
		})
	}
}
