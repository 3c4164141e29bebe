package model

// SearchResult is a single web search hit
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source,omitempty"`
}

// NewsArticle is a news item returned by a news source
type NewsArticle struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	Link        string `json:"link"`
}

// Quote is a point-in-time stock quote
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	MarketCap     int64   `json:"market_cap,omitempty"`
	PERatio       float64 `json:"pe_ratio,omitempty"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	WeekHigh52    float64 `json:"week_high_52"`
	WeekLow52     float64 `json:"week_low_52"`
}

// IndexQuote is a market index level
type IndexQuote struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// Video is a video review hit
type Video struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Channel     string `json:"channel"`
	Duration    string `json:"duration,omitempty"`
	Views       int64  `json:"views,omitempty"`
	Description string `json:"description,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
}

// Page is the extracted text of a fetched web page
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Scraped bool   `json:"scraped"`
}

// Offer is a shopping listing
type Offer struct {
	Title   string  `json:"title"`
	Price   string  `json:"price"`
	Source  string  `json:"source"`
	Rating  float64 `json:"rating,omitempty"`
	Reviews int64   `json:"reviews,omitempty"`
	Link    string  `json:"link"`
}
