package newsdata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
)

const (
	defaultBaseURL = "https://newsdata.io/api/1/news"
	maxPageSize    = 10
)

// Client calls the NewsData.io latest news endpoint
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		language:   "en",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type article struct {
	Title       string `json:"title"`
	SourceID    string `json:"source_id"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Link        string `json:"link"`
}

type response struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
}

// SearchNews returns at most size articles matching query. The free tier
// caps size at 10.
func (c *Client) SearchNews(ctx context.Context, query string, size int) ([]model.NewsArticle, error) {
	if c.apiKey == "" {
		return nil, goerr.New("NewsData API key is not configured")
	}
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}

	params := url.Values{
		"apikey":   {c.apiKey},
		"q":        {query},
		"size":     {strconv.Itoa(size)},
		"language": {c.language},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request", goerr.V("query", query))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("NewsData returned error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response")
	}
	if r.Status != "success" {
		// on failure results holds an error object instead of a list
		return nil, goerr.New("NewsData request failed", goerr.V("status", r.Status), goerr.V("results", string(r.Results)))
	}

	var items []article
	if len(r.Results) > 0 {
		if err := json.Unmarshal(r.Results, &items); err != nil {
			return nil, goerr.Wrap(err, "failed to decode articles")
		}
	}

	articles := make([]model.NewsArticle, 0, len(items))
	for _, a := range items {
		if a.Title == "" {
			continue
		}
		articles = append(articles, model.NewsArticle{
			Title:       a.Title,
			Source:      a.SourceID,
			PublishedAt: a.PubDate,
			Description: a.Description,
			Content:     a.Content,
			Link:        a.Link,
		})
		if len(articles) >= size {
			break
		}
	}
	return articles, nil
}
