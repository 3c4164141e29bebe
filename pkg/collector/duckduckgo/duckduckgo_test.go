package duckduckgo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/collector/duckduckgo"
)

const litePage = `<html><body><table>
<tr><td>1.&nbsp;</td><td><a rel="nofollow" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpixel&amp;rut=x" class='result-link'>Pixel 9 <b>Review</b></a></td></tr>
<tr><td></td><td class='result-snippet'>The Pixel 9 has a   great camera.</td></tr>
<tr><td>2.&nbsp;</td><td><a rel="nofollow" href="https://example.org/specs" class='result-link'>Pixel 9 specs</a></td></tr>
<tr><td></td><td class='result-snippet'>Full specifications.</td></tr>
<tr><td>3.&nbsp;</td><td><a href="javascript:void(0)" class='result-link'>broken</a></td></tr>
</table></body></html>`

func TestParse(t *testing.T) {
	results, err := duckduckgo.Parse(strings.NewReader(litePage))
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, results[0].Title, "Pixel 9 Review")
	gt.Equal(t, results[0].Link, "https://example.com/pixel")
	gt.Equal(t, results[0].Snippet, "The Pixel 9 has a great camera.")
	gt.Equal(t, results[1].Link, "https://example.org/specs")
	gt.Equal(t, results[1].Snippet, "Full specifications.")
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Method, http.MethodPost)
		gt.NoError(t, r.ParseForm())
		gt.Equal(t, r.PostForm.Get("q"), "pixel 9")
		_, _ = w.Write([]byte(litePage))
	}))
	defer srv.Close()

	client := duckduckgo.New(duckduckgo.WithEndpoint(srv.URL), duckduckgo.WithInterval(time.Millisecond))
	results, err := client.Search(context.Background(), "pixel 9", 1)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
}

func TestSearchRetriesOnTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(litePage))
	}))
	defer srv.Close()

	client := duckduckgo.New(duckduckgo.WithEndpoint(srv.URL), duckduckgo.WithInterval(time.Millisecond))
	results, err := client.Search(context.Background(), "pixel 9", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, calls.Load(), int32(2))
}

func TestSearchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := duckduckgo.New(
		duckduckgo.WithEndpoint(srv.URL),
		duckduckgo.WithInterval(time.Millisecond),
		duckduckgo.WithRetries(2),
	)
	_, err := client.Search(context.Background(), "pixel 9", 5)
	gt.Error(t, err)
	gt.Equal(t, calls.Load(), int32(3))
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := duckduckgo.New().Search(context.Background(), "  ", 5)
	gt.Error(t, err)
}
