// Package alphavantage fetches daily bars from the Alpha Vantage API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"FinCache/internal/domain/models"
	drepo "FinCache/internal/domain/repository"
	svcmetrics "FinCache/internal/service/metrics"
	pkghttp "FinCache/pkg/http"
	"FinCache/pkg/ratelimit"
)

const defaultBaseURL = "https://www.alphavantage.co"

// Client implements PriceSource against TIME_SERIES_DAILY_ADJUSTED.
// Alpha Vantage signals quota and input errors inside a 200 response
// body, so the payload is inspected before the series is read.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.Limiter
}

func New(httpClient *pkghttp.Client, baseURL, apiKey string, limiter *ratelimit.Limiter) drepo.PriceSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	svcmetrics.Register()
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, limiter: limiter}
}

func (c *Client) Name() string { return "alphavantage" }

type dailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
}

func (c *Client) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.RawBar, error) {
	began := time.Now()
	bars, err := c.fetchDaily(ctx, ticker, start, end)
	svcmetrics.Observe(c.Name(), began, err)
	return bars, err
}

func (c *Client) fetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.RawBar, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alphavantage api key: %w", drepo.ErrNotConfigured)
	}
	if !c.limiter.Allow() {
		return nil, fmt.Errorf("alphavantage local quota: %w", drepo.ErrRateLimited)
	}

	resp, err := c.http.SendRequest(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/query",
		QueryParams: map[string][]string{
			"function":   {"TIME_SERIES_DAILY_ADJUSTED"},
			"symbol":     {ticker},
			"outputsize": {"full"},
			"apikey":     {c.apiKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", ticker, drepo.ErrUpstream)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("alphavantage %s: %w", ticker, drepo.ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("alphavantage %s: status %d: %w", ticker, resp.StatusCode, drepo.ErrRejected)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("alphavantage %s: status %d: %w", ticker, resp.StatusCode, drepo.ErrUpstream)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: read: %w", ticker, drepo.ErrUpstream)
	}
	var parsed dailyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("alphavantage %s: decode: %w", ticker, drepo.ErrUpstream)
	}
	switch {
	case parsed.ErrorMessage != "":
		return nil, fmt.Errorf("alphavantage %s: %s: %w", ticker, parsed.ErrorMessage, drepo.ErrRejected)
	case parsed.Note != "" || parsed.Information != "":
		// Quota exceeded messages arrive with a 200 status.
		return nil, fmt.Errorf("alphavantage %s: quota: %w", ticker, drepo.ErrRateLimited)
	}

	// The full series goes back decades; keep only the requested window.
	bars := make([]models.RawBar, 0, 64)
	for date, fields := range parsed.Series {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		bars = append(bars, rawBarFromFields(date, fields))
	}
	return bars, nil
}

func rawBarFromFields(date string, fields map[string]string) models.RawBar {
	volume := fields["6. volume"]
	if volume == "" {
		// The non-adjusted endpoint numbers volume as field 5.
		volume = fields["5. volume"]
	}
	return models.RawBar{
		Date:     date,
		Open:     json.Number(fields["1. open"]),
		High:     json.Number(fields["2. high"]),
		Low:      json.Number(fields["3. low"]),
		Close:    json.Number(fields["4. close"]),
		AdjClose: json.Number(fields["5. adjusted close"]),
		Volume:   json.Number(volume),
	}
}
