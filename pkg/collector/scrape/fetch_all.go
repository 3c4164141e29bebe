package scrape

import (
	"context"

	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// FetchAll fetches urls concurrently. The result has one page per url in the
// same order; a failed fetch yields a page with Scraped=false.
func FetchAll(ctx context.Context, fetcher interfaces.PageFetcher, urls []string) []model.Page {
	pages := make([]model.Page, len(urls))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(defaultConcurrency)

	for i, u := range urls {
		eg.Go(func() error {
			page, err := fetcher.Fetch(egCtx, u)
			if err != nil {
				logging.From(ctx).Debug("failed to scrape page", "url", u, "error", err)
				pages[i] = model.Page{URL: u}
				return nil
			}
			pages[i] = *page
			return nil
		})
	}
	_ = eg.Wait()

	return pages
}
