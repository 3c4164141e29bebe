package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
)

const (
	defaultBaseURL     = "https://serpapi.com/search.json"
	maxTranscriptChars = 2000
)

// Client queries SerpAPI engines: google, youtube, google_shopping and
// google_news.
type Client struct {
	apiKey     string
	baseURL    string
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

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type organicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
}

// Search returns Google organic results
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	var resp struct {
		OrganicResults []organicResult `json:"organic_results"`
	}
	params := url.Values{"q": {query}, "num": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "google", params, &resp); err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if r.Link == "" {
			continue
		}
		results = append(results, model.SearchResult{
			Title:   r.Title,
			Snippet: r.Snippet,
			Link:    r.Link,
			Source:  r.Source,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

type videoResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Channel struct {
		Name string `json:"name"`
	} `json:"channel"`
	Length      string `json:"length"`
	Views       int64  `json:"views"`
	Description string `json:"description"`
}

// SearchVideos returns YouTube video results
func (c *Client) SearchVideos(ctx context.Context, query string, limit int) ([]model.Video, error) {
	var resp struct {
		VideoResults []videoResult `json:"video_results"`
	}
	if err := c.get(ctx, "youtube", url.Values{"search_query": {query}}, &resp); err != nil {
		return nil, err
	}

	videos := make([]model.Video, 0, len(resp.VideoResults))
	for _, v := range resp.VideoResults {
		videos = append(videos, model.Video{
			Title:       v.Title,
			Link:        v.Link,
			Channel:     v.Channel.Name,
			Duration:    v.Length,
			Views:       v.Views,
			Description: v.Description,
		})
		if len(videos) >= limit {
			break
		}
	}
	return videos, nil
}

// Transcript returns the caption text of a YouTube video, truncated to
// maxTranscriptChars. link may be a watch URL or a bare video id.
func (c *Client) Transcript(ctx context.Context, link string) (string, error) {
	id := VideoID(link)
	if id == "" {
		return "", goerr.New("invalid video link", goerr.V("link", link))
	}

	var resp struct {
		Transcript []struct {
			Snippet string `json:"snippet"`
		} `json:"transcript"`
	}
	if err := c.get(ctx, "youtube_video_transcript", url.Values{"v": {id}, "language_code": {"en"}}, &resp); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(resp.Transcript))
	for _, t := range resp.Transcript {
		if s := strings.TrimSpace(t.Snippet); s != "" {
			parts = append(parts, s)
		}
	}
	text := strings.Join(parts, " ")
	if len(text) > maxTranscriptChars {
		text = text[:maxTranscriptChars]
	}
	return text, nil
}

// VideoID extracts the video id from a YouTube watch or short link
func VideoID(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		if strings.ContainsAny(link, "/?=") {
			return ""
		}
		return link
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if strings.HasSuffix(u.Host, "youtu.be") || strings.HasPrefix(u.Path, "/shorts/") {
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		return segs[len(segs)-1]
	}
	return ""
}

type shoppingResult struct {
	Title       string  `json:"title"`
	Price       string  `json:"price"`
	Source      string  `json:"source"`
	Rating      float64 `json:"rating"`
	Reviews     int64   `json:"reviews"`
	Link        string  `json:"link"`
	ProductLink string  `json:"product_link"`
}

// Offers returns Google Shopping listings
func (c *Client) Offers(ctx context.Context, query string, limit int) ([]model.Offer, error) {
	var resp struct {
		ShoppingResults []shoppingResult `json:"shopping_results"`
	}
	if err := c.get(ctx, "google_shopping", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}

	offers := make([]model.Offer, 0, len(resp.ShoppingResults))
	for _, r := range resp.ShoppingResults {
		link := r.Link
		if link == "" {
			link = r.ProductLink
		}
		offers = append(offers, model.Offer{
			Title:   r.Title,
			Price:   r.Price,
			Source:  r.Source,
			Rating:  r.Rating,
			Reviews: r.Reviews,
			Link:    link,
		})
		if len(offers) >= limit {
			break
		}
	}
	return offers, nil
}

type newsResult struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Date   string `json:"date"`
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Snippet string `json:"snippet"`
}

// SearchNews returns Google News results
func (c *Client) SearchNews(ctx context.Context, query string, size int) ([]model.NewsArticle, error) {
	var resp struct {
		NewsResults []newsResult `json:"news_results"`
	}
	if err := c.get(ctx, "google_news", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}

	articles := make([]model.NewsArticle, 0, len(resp.NewsResults))
	for _, r := range resp.NewsResults {
		if r.Title == "" {
			continue
		}
		articles = append(articles, model.NewsArticle{
			Title:       r.Title,
			Source:      r.Source.Name,
			PublishedAt: r.Date,
			Description: r.Snippet,
			Link:        r.Link,
		})
		if len(articles) >= size {
			break
		}
	}
	return articles, nil
}

func (c *Client) get(ctx context.Context, engine string, params url.Values, out any) error {
	if c.apiKey == "" {
		return goerr.New("SerpAPI key is not configured")
	}

	params.Set("engine", engine)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("engine", engine))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send request", goerr.V("engine", engine))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return goerr.Wrap(err, "failed to read response", goerr.V("engine", engine))
	}

	if resp.StatusCode != http.StatusOK {
		return goerr.New("SerpAPI returned error",
			goerr.V("engine", engine),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return goerr.New("SerpAPI returned error", goerr.V("engine", engine), goerr.V("error", apiErr.Error))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("engine", engine))
	}
	return nil
}
