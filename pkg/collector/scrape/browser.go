package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
)

// BrowserFetcher renders pages in headless Chrome before extracting text. It
// serves shops and review sites that build their content with JavaScript.
type BrowserFetcher struct {
	controlURL string
	timeout    time.Duration
	maxChars   int

	mu      sync.Mutex
	browser *rod.Browser
}

type BrowserOption func(*BrowserFetcher)

// WithControlURL connects to an already running Chrome instead of launching one
func WithControlURL(u string) BrowserOption {
	return func(f *BrowserFetcher) {
		f.controlURL = u
	}
}

func WithNavigationTimeout(d time.Duration) BrowserOption {
	return func(f *BrowserFetcher) {
		f.timeout = d
	}
}

func WithBrowserMaxChars(n int) BrowserOption {
	return func(f *BrowserFetcher) {
		f.maxChars = n
	}
}

func NewBrowser(opts ...BrowserOption) *BrowserFetcher {
	f := &BrowserFetcher{
		timeout:  20 * time.Second,
		maxChars: DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	controlURL := f.controlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to launch browser")
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, goerr.Wrap(err, "failed to connect to browser", goerr.V("control_url", controlURL))
	}
	f.browser = browser
	return browser, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*model.Page, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, goerr.New("url is empty")
	}

	browser, err := f.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open page", goerr.V("url", url))
	}
	defer func() { _ = page.Close() }()

	page = page.Timeout(f.timeout)
	if err := page.WaitLoad(); err != nil {
		return nil, goerr.Wrap(err, "failed to load page", goerr.V("url", url))
	}

	raw, err := page.HTML()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read page html", goerr.V("url", url))
	}

	title, text, err := Extract(strings.NewReader(raw))
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

// Close shuts the browser down if it was started
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	if err != nil {
		return goerr.Wrap(err, "failed to close browser")
	}
	return nil
}
