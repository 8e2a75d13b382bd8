package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	drepo "FinCache/internal/domain/repository"
	pkghttp "FinCache/pkg/http"
)

func newTestClient(srvURL, key string) drepo.NewsSource {
	return New(pkghttp.NewClient(), srvURL, key, nil)
}

func TestFetchPageBuildsQuery(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"title":"chips up","publishedAt":"2025-02-25T10:00:00Z","source":{"name":"wire"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	from := time.Now().UTC().AddDate(0, 0, -7)
	to := time.Now().UTC()
	arts, err := c.FetchPage(context.Background(), "nvidia", "en", from, to, 100)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(arts) != 1 || arts[0].Title != "chips up" {
		t.Fatalf("articles = %+v", arts)
	}

	checks := map[string]string{
		"q":        "nvidia",
		"searchIn": "title",
		"language": "en",
		"pageSize": "100",
		"sortBy":   "publishedAt",
		"apiKey":   "secret",
	}
	for k, want := range checks {
		if got := gotQuery.Get(k); got != want {
			t.Errorf("query %s = %q, want %q", k, got, want)
		}
	}
}

func TestFetchPageRequiresKey(t *testing.T) {
	c := newTestClient("http://unused", "")
	_, err := c.FetchPage(context.Background(), "nvidia", "en", time.Now().AddDate(0, 0, -1), time.Now(), 100)
	if !errors.Is(err, drepo.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestFetchPageRejectsDeepLookback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for an out-of-archive window")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	from := time.Now().UTC().AddDate(0, 0, -40)
	_, err := c.FetchPage(context.Background(), "nvidia", "en", from, time.Now().UTC(), 100)
	if !errors.Is(err, drepo.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestFetchPageMapsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	_, err := c.FetchPage(context.Background(), "nvidia", "en", time.Now().AddDate(0, 0, -1), time.Now(), 100)
	if !errors.Is(err, drepo.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestFetchPageMapsBodyLevelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","code":"parameterInvalid","message":"bad from"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	_, err := c.FetchPage(context.Background(), "nvidia", "en", time.Now().AddDate(0, 0, -1), time.Now(), 100)
	if !errors.Is(err, drepo.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestFetchPageMapsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	_, err := c.FetchPage(context.Background(), "nvidia", "en", time.Now().AddDate(0, 0, -1), time.Now(), 100)
	if !errors.Is(err, drepo.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}
