// Package newsapi fetches articles from the NewsAPI everything endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"FinCache/internal/domain/models"
	drepo "FinCache/internal/domain/repository"
	svcmetrics "FinCache/internal/service/metrics"
	pkghttp "FinCache/pkg/http"
	"FinCache/pkg/ratelimit"
)

const (
	defaultBaseURL = "https://newsapi.org"

	// The free tier caps page size at 100 items and the archive at 29
	// days back; anything older is rejected upstream.
	maxPageSize     = 100
	maxLookbackDays = 29
)

// Client implements NewsSource. NewsAPI has no page cursor worth using
// on the free tier, so callers page by narrowing the to-boundary.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.Limiter
}

func New(httpClient *pkghttp.Client, baseURL, apiKey string, limiter *ratelimit.Limiter) drepo.NewsSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	svcmetrics.Register()
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, limiter: limiter}
}

func (c *Client) Name() string         { return "newsapi" }
func (c *Client) MaxPageSize() int     { return maxPageSize }
func (c *Client) MaxLookbackDays() int { return maxLookbackDays }

type everythingResponse struct {
	Status       string              `json:"status"`
	Code         string              `json:"code"`
	Message      string              `json:"message"`
	TotalResults int                 `json:"totalResults"`
	Articles     []models.RawArticle `json:"articles"`
}

// FetchPage returns up to pageSize articles titled against the query,
// published within [from, to], newest first.
func (c *Client) FetchPage(ctx context.Context, query, lang string, from, to time.Time, pageSize int) ([]models.RawArticle, error) {
	began := time.Now()
	items, err := c.fetchPage(ctx, query, lang, from, to, pageSize)
	svcmetrics.Observe(c.Name(), began, err)
	return items, err
}

func (c *Client) fetchPage(ctx context.Context, query, lang string, from, to time.Time, pageSize int) ([]models.RawArticle, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("newsapi key: %w", drepo.ErrNotConfigured)
	}
	if time.Since(from) > (maxLookbackDays+1)*24*time.Hour {
		return nil, fmt.Errorf("newsapi window starts %s, older than %d days: %w",
			from.Format("2006-01-02"), maxLookbackDays, drepo.ErrRejected)
	}
	if !c.limiter.Allow() {
		return nil, fmt.Errorf("newsapi local quota: %w", drepo.ErrRateLimited)
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if lang == "" {
		lang = "en"
	}

	resp, err := c.http.SendRequest(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/v2/everything",
		QueryParams: map[string][]string{
			"q":        {query},
			"searchIn": {"title"},
			"from":     {from.UTC().Format(time.RFC3339)},
			"to":       {to.UTC().Format(time.RFC3339)},
			"language": {lang},
			"pageSize": {strconv.Itoa(pageSize)},
			"sortBy":   {"publishedAt"},
			"apiKey":   {c.apiKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("newsapi %q: %w", query, drepo.ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("newsapi %q: read: %w", query, drepo.ErrUpstream)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("newsapi %q: %w", query, drepo.ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("newsapi %q: status %d: %s: %w", query, resp.StatusCode, errorMessage(body), drepo.ErrRejected)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("newsapi %q: status %d: %w", query, resp.StatusCode, drepo.ErrUpstream)
	}

	var parsed everythingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("newsapi %q: decode: %w", query, drepo.ErrUpstream)
	}
	if parsed.Status != "ok" {
		if parsed.Code == "rateLimited" {
			return nil, fmt.Errorf("newsapi %q: %s: %w", query, parsed.Message, drepo.ErrRateLimited)
		}
		return nil, fmt.Errorf("newsapi %q: %s: %w", query, parsed.Message, drepo.ErrRejected)
	}
	return parsed.Articles, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return "request rejected"
}
