package newsdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/collector/newsdata"
)

func TestSearchNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gt.Equal(t, q.Get("apikey"), "test-key")
		gt.Equal(t, q.Get("q"), "Apple OR Microsoft")
		gt.Equal(t, q.Get("size"), "3")
		gt.Equal(t, q.Get("language"), "en")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"totalResults": 2,
			"results": [
				{"title": "Apple unveils new chip", "source_id": "reuters", "pubDate": "2026-10-18 09:00:00", "description": "M5 arrives", "content": "Long text", "link": "https://news.example/apple"},
				{"title": "", "source_id": "spam"},
				{"title": "Microsoft earnings", "source_id": "bloomberg", "pubDate": "2026-10-17 20:00:00", "link": "https://news.example/msft"}
			]
		}`))
	}))
	defer srv.Close()

	client := newsdata.New("test-key", newsdata.WithBaseURL(srv.URL))
	articles, err := client.SearchNews(context.Background(), "Apple OR Microsoft", 3)
	gt.NoError(t, err)
	gt.A(t, articles).Length(2)
	gt.Equal(t, articles[0].Source, "reuters")
	gt.Equal(t, articles[0].PublishedAt, "2026-10-18 09:00:00")
	gt.Equal(t, articles[0].Content, "Long text")
	gt.Equal(t, articles[1].Title, "Microsoft earnings")
}

func TestSearchNewsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "results": {"message": "API key invalid", "code": "Unauthorized"}}`))
	}))
	defer srv.Close()

	_, err := newsdata.New("test-key", newsdata.WithBaseURL(srv.URL)).SearchNews(context.Background(), "tesla", 5)
	gt.Error(t, err)
}

func TestSearchNewsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newsdata.New("test-key", newsdata.WithBaseURL(srv.URL)).SearchNews(context.Background(), "tesla", 5)
	gt.Error(t, err)
}

func TestSearchNewsClampsSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Query().Get("size"), "10")
		_, _ = w.Write([]byte(`{"status": "success", "results": []}`))
	}))
	defer srv.Close()

	articles, err := newsdata.New("test-key", newsdata.WithBaseURL(srv.URL)).SearchNews(context.Background(), "tesla", 50)
	gt.NoError(t, err)
	gt.A(t, articles).Length(0)
}

func TestMissingKey(t *testing.T) {
	_, err := newsdata.New("").SearchNews(context.Background(), "tesla", 5)
	gt.Error(t, err)
}

func TestSearchNewsLive(t *testing.T) {
	apiKey := os.Getenv("TEST_NEWSDATA_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_NEWSDATA_API_KEY is not set")
	}

	articles, err := newsdata.New(apiKey).SearchNews(context.Background(), "technology", 3)
	gt.NoError(t, err)
	gt.A(t, articles).Longer(0)
}
