package duckduckgo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
	"golang.org/x/net/html"
)

const (
	defaultEndpoint = "https://lite.duckduckgo.com/lite/"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBackoff      = 30 * time.Second
)

// rateLimit allows one query per second across every Client in the process
var rateLimit struct {
	mu   sync.Mutex
	last time.Time
}

// Client scrapes the DuckDuckGo lite HTML page. It needs no API key and is
// used as the keyless fallback for web search.
type Client struct {
	endpoint   string
	httpClient *http.Client
	interval   time.Duration
	retries    int
}

type Option func(*Client)

func WithEndpoint(u string) Option {
	return func(c *Client) {
		c.endpoint = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInterval changes the minimum gap between two queries
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		c.interval = d
	}
}

// WithRetries limits how many times a 429 response is retried
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		interval:   time.Second,
		retries:    3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) wait(ctx context.Context) error {
	rateLimit.mu.Lock()
	if wait := time.Until(rateLimit.last.Add(c.interval)); wait > 0 {
		rateLimit.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		rateLimit.mu.Lock()
	}
	rateLimit.last = time.Now()
	rateLimit.mu.Unlock()
	return nil
}

// Search returns up to limit results for query
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, goerr.New("query is empty")
	}
	if err := c.wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "interrupted while waiting for rate limit")
	}

	form := url.Values{"q": {query}}
	delay := c.interval
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create request")
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to send request", goerr.V("query", query))
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.retries {
			break
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "interrupted while backing off")
		case <-time.After(delay):
		}
		if delay < maxBackoff {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("DuckDuckGo returned error status", goerr.V("status", resp.StatusCode))
	}

	results, err := Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Parse extracts results from a DuckDuckGo lite page. Links with class
// result-link open a result and the next result-snippet cell describes it.
func Parse(r io.Reader) ([]model.SearchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse DuckDuckGo page")
	}

	var results []model.SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result-link"):
				link := resolveLink(attr(n, "href"))
				title := strings.TrimSpace(textOf(n))
				if link != "" && title != "" {
					results = append(results, model.SearchResult{
						Title:  title,
						Link:   link,
						Source: "duckduckgo",
					})
				}
				return
			case hasClass(n, "result-snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = strings.Join(strings.Fields(textOf(n)), " ")
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results, nil
}

// resolveLink unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...)
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
