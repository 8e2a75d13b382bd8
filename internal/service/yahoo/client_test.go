package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	drepo "FinCache/internal/domain/repository"
	pkghttp "FinCache/pkg/http"
)

const chartBody = `{
	"chart": {
		"result": [{
			"timestamp": [1735776000, 1735862400],
			"indicators": {
				"quote": [{
					"open": [100.0, 101.0],
					"high": [101.0, 102.0],
					"low": [99.0, 100.0],
					"close": [100.5, null],
					"volume": [1000.0, 1100.0]
				}],
				"adjclose": [{"adjclose": [100.1, 101.1]}]
			}
		}],
		"error": null
	}
}`

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d.UTC()
}

func TestFetchDailyParsesChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval = %q", r.URL.Query().Get("interval"))
		}
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, nil)
	bars, err := c.FetchDaily(context.Background(), "AAPL", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-10"))
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[0].Date != "2025-01-02" {
		t.Fatalf("date = %s, want 2025-01-02", bars[0].Date)
	}
	if bars[0].Close != "100.5" || bars[0].AdjClose != "100.1" {
		t.Fatalf("bar = %+v", bars[0])
	}
	// A null in the series yields an empty number that normalization
	// drops later.
	if bars[1].Close != "" {
		t.Fatalf("null close parsed as %q, want empty", bars[1].Close)
	}
}

func TestFetchDailyMapsChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, nil)
	_, err := c.FetchDaily(context.Background(), "NOPE", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-10"))
	if !errors.Is(err, drepo.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestFetchDailyMapsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, nil)
	_, err := c.FetchDaily(context.Background(), "AAPL", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-10"))
	if !errors.Is(err, drepo.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestFetchDailyMapsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, nil)
	_, err := c.FetchDaily(context.Background(), "AAPL", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-10"))
	if !errors.Is(err, drepo.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}
