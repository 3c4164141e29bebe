package research

import (
	"time"

	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/model"
)

type demoContent struct {
	Title   string
	Feature string
	Bullets []string
}

var demoContents = map[model.Category]demoContent{
	model.CategoryStocks: {
		Title:   "STOCK ANALYSIS",
		Feature: "stock analysis",
		Bullets: []string{
			"Real-time stock prices from Yahoo Finance",
			"Market trends and technical analysis",
			"Investment recommendations",
			"Risk assessment and price targets",
		},
	},
	model.CategoryNews: {
		Title:   "NEWS ANALYSIS",
		Feature: "news analysis",
		Bullets: []string{
			"Latest articles from news providers",
			"Key developments and their impact",
			"Trends and future implications",
		},
	},
	model.CategoryProduct: {
		Title:   "PRODUCT ANALYSIS",
		Feature: "product analysis",
		Bullets: []string{
			"Content scraped from review sites",
			"YouTube video review analysis",
			"Real-time pricing and availability",
			"Purchase recommendations and alternatives",
			"Follow-up questions such as \"What about the camera quality?\"",
		},
	},
	model.CategoryGeneral: {
		Title:   "GENERAL ANALYSIS",
		Feature: "general analysis",
		Bullets: []string{
			"Comprehensive research and analysis",
			"Multi-source data aggregation",
			"AI-powered insights and recommendations",
		},
	},
}

// DemoResult renders a canned response for query without calling any
// collector or model. It is served when no language model is configured.
func DemoResult(query string) *Result {
	category := keyword.Classify(query)
	content := demoContents[category]

	report, err := render(demoReportTmpl, map[string]any{
		"Title":   content.Title,
		"Feature": content.Feature,
		"Query":   query,
		"Bullets": content.Bullets,
	})
	if err != nil {
		report = "Demo mode: " + query
	}

	return &Result{
		Query:     query,
		SessionID: model.DefaultSessionID,
		Report:    report,
		Category:  category,
		Demo:      true,
		Timestamp: time.Now(),
	}
}
