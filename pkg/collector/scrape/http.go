package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
)

const (
	userAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes    = 2 << 20
	DefaultMaxChars = 2000
)

// HTTPFetcher downloads pages over plain HTTP and extracts their text
type HTTPFetcher struct {
	httpClient *http.Client
	maxChars   int
}

type Option func(*HTTPFetcher)

func WithHTTPClient(hc *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.httpClient = hc
	}
}

// WithMaxChars limits the extracted text of each page
func WithMaxChars(n int) Option {
	return func(f *HTTPFetcher) {
		f.maxChars = n
	}
}

func NewHTTP(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxChars:   DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, goerr.New("url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch page", goerr.V("url", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("page returned error status", goerr.V("url", url), goerr.V("status", resp.StatusCode))
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read page", goerr.V("url", url))
		}
		return &model.Page{URL: url, Content: Truncate(strings.TrimSpace(string(raw)), f.maxChars), Scraped: true}, nil
	}

	title, text, err := Extract(body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract page", goerr.V("url", url))
	}

	return &model.Page{
		URL:     url,
		Title:   title,
		Content: Truncate(text, f.maxChars),
		Scraped: text != "",
	}, nil
}
