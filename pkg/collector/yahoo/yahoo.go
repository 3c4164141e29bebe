package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Index is a market index reported alongside stock quotes
type Index struct {
	Name   string
	Symbol string
}

// DefaultIndices are the indices included in every stock report
func DefaultIndices() []Index {
	return []Index{
		{Name: "S&P 500", Symbol: "^GSPC"},
		{Name: "Dow Jones", Symbol: "^DJI"},
		{Name: "NASDAQ", Symbol: "^IXIC"},
		{Name: "Nifty 50", Symbol: "^NSEI"},
	}
}

// Client reads quotes from the Yahoo Finance chart endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	indices    []Index
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

func WithIndices(indices []Index) Option {
	return func(c *Client) {
		c.indices = indices
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		indices:    DefaultIndices(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c
}

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	PreviousClose        float64 `json:"previousClose"`
	RegularMarketVolume  int64   `json:"regularMarketVolume"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	FiftyTwoWeekHigh     float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      float64 `json:"fiftyTwoWeekLow"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote returns the latest quote of symbol
func (c *Client) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, goerr.New("symbol is empty")
	}

	params := url.Values{"interval": {"1d"}, "range": {"5d"}}
	endpoint := c.baseURL + url.PathEscape(symbol) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("symbol", symbol))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request", goerr.V("symbol", symbol))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response", goerr.V("symbol", symbol))
	}

	var r chartResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response",
			goerr.V("symbol", symbol),
			goerr.V("status", resp.StatusCode))
	}
	if r.Chart.Error != nil {
		return nil, goerr.New("Yahoo Finance returned error",
			goerr.V("symbol", symbol),
			goerr.V("code", r.Chart.Error.Code),
			goerr.V("description", r.Chart.Error.Description))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("Yahoo Finance returned error status", goerr.V("symbol", symbol), goerr.V("status", resp.StatusCode))
	}
	if len(r.Chart.Result) == 0 {
		return nil, goerr.New("no quote data", goerr.V("symbol", symbol))
	}

	return toQuote(symbol, r.Chart.Result[0].Meta), nil
}

func toQuote(symbol string, m chartMeta) *model.Quote {
	prev := m.ChartPreviousClose
	if prev == 0 {
		prev = m.PreviousClose
	}
	name := m.LongName
	if name == "" {
		name = m.ShortName
	}
	if name == "" {
		name = symbol
	}

	q := &model.Quote{
		Symbol:        symbol,
		Name:          name,
		Currency:      m.Currency,
		Price:         round2(m.RegularMarketPrice),
		PreviousClose: round2(prev),
		Volume:        m.RegularMarketVolume,
		DayHigh:       round2(m.RegularMarketDayHigh),
		DayLow:        round2(m.RegularMarketDayLow),
		WeekHigh52:    round2(m.FiftyTwoWeekHigh),
		WeekLow52:     round2(m.FiftyTwoWeekLow),
	}
	if prev != 0 {
		change := m.RegularMarketPrice - prev
		q.Change = round2(change)
		q.ChangePercent = round2(change / prev * 100)
	}
	return q
}

// Indices fetches all configured indices concurrently. Indices that fail are
// left out; the rest keep their configured order.
func (c *Client) Indices(ctx context.Context) ([]model.IndexQuote, error) {
	quotes := make([]*model.IndexQuote, len(c.indices))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, idx := range c.indices {
		eg.Go(func() error {
			q, err := c.Quote(egCtx, idx.Symbol)
			if err != nil {
				logging.From(ctx).Debug("failed to fetch index", "index", idx.Symbol, "error", err)
				return nil
			}
			quotes[i] = &model.IndexQuote{
				Name:          idx.Name,
				Symbol:        idx.Symbol,
				Price:         q.Price,
				ChangePercent: q.ChangePercent,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch indices")
	}

	result := make([]model.IndexQuote, 0, len(quotes))
	for _, q := range quotes {
		if q != nil {
			result = append(result, *q)
		}
	}
	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
