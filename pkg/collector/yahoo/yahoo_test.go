package yahoo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/collector/yahoo"
)

func chartServer(t *testing.T, prices map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Query().Get("range"), "5d")
		symbol := strings.TrimPrefix(r.URL.Path, "/")
		price, ok := prices[symbol]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"chart": {"result": [{"meta": {
			"symbol": %q, "currency": "USD", "longName": "Test %s",
			"regularMarketPrice": %f, "chartPreviousClose": 200,
			"regularMarketVolume": 12345, "regularMarketDayHigh": 251.456, "regularMarketDayLow": 240.1,
			"fiftyTwoWeekHigh": 300, "fiftyTwoWeekLow": 150
		}}], "error": null}}`, symbol, symbol, price)
	}))
}

func TestQuote(t *testing.T) {
	srv := chartServer(t, map[string]float64{"TSLA": 250})
	defer srv.Close()

	q, err := yahoo.New(yahoo.WithBaseURL(srv.URL)).Quote(context.Background(), "tsla")
	gt.NoError(t, err)
	gt.Equal(t, q.Symbol, "TSLA")
	gt.Equal(t, q.Name, "Test TSLA")
	gt.Equal(t, q.Price, 250.0)
	gt.Equal(t, q.Change, 50.0)
	gt.Equal(t, q.ChangePercent, 25.0)
	gt.Equal(t, q.DayHigh, 251.46)
	gt.Equal(t, q.Volume, int64(12345))
}

func TestQuoteNotFound(t *testing.T) {
	srv := chartServer(t, map[string]float64{})
	defer srv.Close()

	_, err := yahoo.New(yahoo.WithBaseURL(srv.URL)).Quote(context.Background(), "NOPE")
	gt.Error(t, err)
}

func TestIndicesKeepsOrderAndSkipsFailures(t *testing.T) {
	srv := chartServer(t, map[string]float64{"^GSPC": 210, "^IXIC": 190})
	defer srv.Close()

	indices, err := yahoo.New(yahoo.WithBaseURL(srv.URL)).Indices(context.Background())
	gt.NoError(t, err)
	gt.A(t, indices).Length(2)
	gt.Equal(t, indices[0].Name, "S&P 500")
	gt.Equal(t, indices[0].ChangePercent, 5.0)
	gt.Equal(t, indices[1].Name, "NASDAQ")
	gt.Equal(t, indices[1].ChangePercent, -5.0)
}

func TestQuoteLive(t *testing.T) {
	if os.Getenv("TEST_YAHOO_FINANCE") == "" {
		t.Skip("TEST_YAHOO_FINANCE is not set")
	}

	q, err := yahoo.New().Quote(context.Background(), "AAPL")
	gt.NoError(t, err)
	gt.NotEqual(t, q.Price, 0.0)
}
