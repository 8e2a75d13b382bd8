// Package yahoo fetches daily bars from the Yahoo Finance chart API.
package yahoo

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

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements PriceSource against the v8 chart endpoint. The
// endpoint is unauthenticated but picky about the User-Agent.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	limiter *ratelimit.Limiter
}

func New(httpClient *pkghttp.Client, baseURL string, limiter *ratelimit.Limiter) drepo.PriceSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	svcmetrics.Register()
	return &Client{http: httpClient, baseURL: baseURL, limiter: limiter}
}

func (c *Client) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily returns one bar per trading day in [start, end]. Days the
// market was closed are simply absent from the response.
func (c *Client) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.RawBar, error) {
	began := time.Now()
	bars, err := c.fetchDaily(ctx, ticker, start, end)
	svcmetrics.Observe(c.Name(), began, err)
	return bars, err
}

func (c *Client) fetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.RawBar, error) {
	if !c.limiter.Allow() {
		return nil, fmt.Errorf("yahoo local quota: %w", drepo.ErrRateLimited)
	}

	// period2 is exclusive, so push it past the end day.
	period1 := start.Unix()
	period2 := end.AddDate(0, 0, 1).Unix()

	resp, err := c.http.SendRequest(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, ticker),
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (compatible; fincache/1.0)",
		},
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(period1, 10)},
			"period2":  {strconv.FormatInt(period2, 10)},
			"interval": {"1d"},
			"events":   {"div,split"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, drepo.ErrUpstream)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, drepo.ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("yahoo chart %s: status %d: %w", ticker, resp.StatusCode, drepo.ErrRejected)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo chart %s: status %d: %w", ticker, resp.StatusCode, drepo.ErrUpstream)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: read: %w", ticker, drepo.ErrUpstream)
	}
	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: decode: %w", ticker, drepo.ErrUpstream)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %w", ticker, parsed.Chart.Error.Code, drepo.ErrRejected)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	r := parsed.Chart.Result[0]
	quote := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.RawBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		bar := models.RawBar{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   numAt(quote.Open, i),
			High:   numAt(quote.High, i),
			Low:    numAt(quote.Low, i),
			Close:  numAt(quote.Close, i),
			Volume: numAt(quote.Volume, i),
		}
		bar.AdjClose = numAt(adj, i)
		bars = append(bars, bar)
	}
	return bars, nil
}

// numAt formats the i-th value as a json.Number, empty when the series
// has a null at that position (Yahoo pads holidays with nulls).
func numAt(series []*float64, i int) json.Number {
	if i >= len(series) || series[i] == nil {
		return ""
	}
	return json.Number(strconv.FormatFloat(*series[i], 'f', -1, 64))
}
