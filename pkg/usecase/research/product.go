package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/marten/pkg/collector/scrape"
	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	MsgNoProduct = "No product data found for the query."

	productSearchLimit = 10
	videoLimit         = 10
	offerLimit         = 5
	scrapeLimit        = 5
	competitorLimit    = 5
	transcriptWorkers  = 3
	pagePreviewSize    = 1000
)

type productHandler struct {
	llm     interfaces.LLM
	search  interfaces.Searcher
	videos  interfaces.VideoSource
	shopper interfaces.Shopper
	fetcher interfaces.PageFetcher
}

// productEvidence is everything collected about one product query
type productEvidence struct {
	results     []model.SearchResult
	videos      []model.Video
	offers      []model.Offer
	pages       []model.Page
	competitors []model.SearchResult
}

func (h *productHandler) Process(ctx context.Context, query string, category model.Category, mem *memory.Memory) (string, error) {
	logger := logging.From(ctx)

	if h.search == nil {
		logger.Warn("no searcher configured")
		return MsgNoProduct, nil
	}
	results, err := h.search.Search(ctx, keyword.OptimizeSearchQuery(query, model.CategoryProduct), productSearchLimit)
	if err != nil {
		logger.Warn("product search failed", "error", err)
	}
	if len(results) == 0 {
		return MsgNoProduct, nil
	}

	ev := h.collect(ctx, query, results)
	evidence := ev.context()

	data := map[string]any{
		"Query":   query,
		"Context": evidence,
		"Videos":  len(ev.videos),
		"Sources": ev.sources(),
	}

	logger.Debug("synthesizing", "state", StateSynthesizing, "category", category)
	marketPrompt, err := render(productMarketPromptTmpl, data)
	if err != nil {
		return "", err
	}
	purchasePrompt, err := render(productPurchasePromptTmpl, data)
	if err != nil {
		return "", err
	}
	data["Market"] = h.llm.Generate(ctx, marketPrompt)
	data["Purchase"] = h.llm.Generate(ctx, purchasePrompt)

	report, err := render(productReportTmpl, data)
	if err != nil {
		return "", err
	}

	if mem != nil {
		mem.StartNewSession(keyword.NormalizeSubject(query), model.CategoryProduct, evidence)
	}
	return report, nil
}

// collect runs the secondary collectors concurrently. Each one only fills
// its own field, so the merge order does not depend on completion order.
// Failures leave the field empty.
func (h *productHandler) collect(ctx context.Context, query string, results []model.SearchResult) *productEvidence {
	logger := logging.From(ctx)
	ev := &productEvidence{results: results}

	var eg errgroup.Group

	if h.videos != nil && keyword.HasReviewIntent(query) {
		eg.Go(func() error {
			ev.videos = h.collectVideos(ctx, query)
			return nil
		})
	} else {
		logger.Debug("skip video reviews", "query", query)
	}

	if h.shopper != nil {
		eg.Go(func() error {
			offers, err := h.shopper.Offers(ctx, query, offerLimit)
			if err != nil {
				logger.Warn("failed to fetch offers", "error", err)
				return nil
			}
			ev.offers = offers
			return nil
		})
	}

	if h.fetcher != nil {
		eg.Go(func() error {
			urls := make([]string, 0, scrapeLimit)
			for _, r := range results {
				if r.Link == "" {
					continue
				}
				urls = append(urls, r.Link)
				if len(urls) >= scrapeLimit {
					break
				}
			}
			ev.pages = scrape.FetchAll(ctx, h.fetcher, urls)
			return nil
		})
	}

	eg.Go(func() error {
		competitors, err := h.search.Search(ctx, keyword.NormalizeSubject(query)+" vs competitors alternatives", competitorLimit)
		if err != nil {
			logger.Warn("failed to search competitors", "error", err)
			return nil
		}
		ev.competitors = competitors
		return nil
	})

	_ = eg.Wait()
	return ev
}

func (h *productHandler) collectVideos(ctx context.Context, query string) []model.Video {
	logger := logging.From(ctx)

	videos, err := h.videos.SearchVideos(ctx, query, videoLimit)
	if err != nil {
		logger.Warn("failed to search videos", "error", err)
		return nil
	}

	var eg errgroup.Group
	eg.SetLimit(transcriptWorkers)
	for i := range videos {
		eg.Go(func() error {
			text, err := h.videos.Transcript(ctx, videos[i].Link)
			if err != nil {
				logger.Debug("no transcript", "video", videos[i].Link, "error", err)
				return nil
			}
			videos[i].Transcript = text
			return nil
		})
	}
	_ = eg.Wait()

	return videos
}

func (ev *productEvidence) context() string {
	var b strings.Builder
	b.WriteString("=== COMPREHENSIVE PRODUCT REVIEW DATA ===\n\n")

	b.WriteString("=== SEARCH RESULT SUMMARIES ===\n")
	for i, r := range ev.results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", r.Snippet)
		}
		fmt.Fprintf(&b, "   Link: %s\n", r.Link)
	}

	var scraped int
	for _, p := range ev.pages {
		if p.Scraped {
			scraped++
		}
	}
	if scraped > 0 {
		b.WriteString("\n=== WEB REVIEW CONTENT ===\n")
		for _, p := range ev.pages {
			if !p.Scraped {
				continue
			}
			title := p.Title
			if title == "" {
				title = p.URL
			}
			fmt.Fprintf(&b, "--- %s (%s)\n%s\n\n", title, p.URL, clip(p.Content, pagePreviewSize))
		}
	}

	if len(ev.videos) > 0 {
		fmt.Fprintf(&b, "\n=== YOUTUBE REVIEWS (%d videos) ===\n", len(ev.videos))
		for i, v := range ev.videos {
			fmt.Fprintf(&b, "%d. %s", i+1, v.Title)
			if v.Channel != "" {
				fmt.Fprintf(&b, " by %s", v.Channel)
			}
			b.WriteString("\n")
			switch {
			case v.Transcript != "":
				fmt.Fprintf(&b, "   Transcript: %s\n", v.Transcript)
			case v.Description != "":
				fmt.Fprintf(&b, "   Description: %s\n", v.Description)
			}
		}
	}

	if len(ev.offers) > 0 {
		b.WriteString("\n=== E-COMMERCE LISTINGS ===\n")
		for _, o := range ev.offers {
			fmt.Fprintf(&b, "- %s: %s at %s", o.Title, o.Price, o.Source)
			if o.Rating > 0 {
				fmt.Fprintf(&b, " (rating %.1f, %d reviews)", o.Rating, o.Reviews)
			}
			b.WriteString("\n")
		}
	}

	if len(ev.competitors) > 0 {
		b.WriteString("\n=== COMPETITORS & ALTERNATIVES ===\n")
		for _, c := range ev.competitors {
			fmt.Fprintf(&b, "- %s: %s\n", c.Title, c.Snippet)
		}
	}

	return b.String()
}

func (ev *productEvidence) sources() string {
	sources := []string{"Web search"}
	if len(ev.pages) > 0 {
		sources = append(sources, "Scraped reviews")
	}
	if len(ev.videos) > 0 {
		sources = append(sources, "YouTube reviews")
	}
	if len(ev.offers) > 0 {
		sources = append(sources, "E-commerce data")
	}
	sources = append(sources, "LLM analysis")
	return strings.Join(sources, " • ")
}
