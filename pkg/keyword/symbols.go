package keyword

import (
	"strings"
	"unicode"
)

// MaxSymbols bounds the number of tickers resolved from a single query
const MaxSymbols = 3

// DefaultTickers maps lower-cased company names to ticker symbols
func DefaultTickers() map[string]string {
	return map[string]string{
		"apple":     "AAPL",
		"microsoft": "MSFT",
		"google":    "GOOGL",
		"alphabet":  "GOOGL",
		"amazon":    "AMZN",
		"tesla":     "TSLA",
		"meta":      "META",
		"facebook":  "META",
		"netflix":   "NFLX",
		"nvidia":    "NVDA",
		"intel":     "INTC",
		"amd":       "AMD",
		"reliance":  "RELIANCE.NS",
		"tcs":       "TCS.NS",
		"infosys":   "INFY.NS",
		"hdfc":      "HDFCBANK.NS",
		"icici":     "ICICIBANK.NS",
		"sbi":       "SBIN.NS",
	}
}

// ResolveSymbols finds ticker symbols in query. Company names are looked up in
// tickers; upper-case tokens (or $cashtags) equal to a known symbol are taken
// as-is. Results keep the order of appearance, are de-duplicated and capped
// at MaxSymbols.
func ResolveSymbols(query string, tickers map[string]string) []string {
	known := make(map[string]bool, len(tickers))
	for _, sym := range tickers {
		known[sym] = true
	}

	var symbols []string
	seen := make(map[string]bool)
	add := func(sym string) {
		if sym == "" || seen[sym] || len(symbols) >= MaxSymbols {
			return
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}

	for _, raw := range strings.Fields(query) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$' && r != '.'
		})
		word = strings.TrimSuffix(word, ".")
		if word == "" {
			continue
		}

		if strings.HasPrefix(word, "$") {
			add(strings.ToUpper(strings.TrimPrefix(word, "$")))
			continue
		}

		if sym, ok := tickers[strings.ToLower(word)]; ok {
			add(sym)
			continue
		}

		if word == strings.ToUpper(word) && known[word] {
			add(word)
		}
	}

	return symbols
}
