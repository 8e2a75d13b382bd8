package alphavantage

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

const seriesBody = `{
	"Meta Data": {"2. Symbol": "AAPL"},
	"Time Series (Daily)": {
		"2025-01-02": {"1. open": "100", "2. high": "101", "3. low": "99", "4. close": "100.5", "5. adjusted close": "100.1", "6. volume": "1000"},
		"2025-01-03": {"1. open": "101", "2. high": "102", "3. low": "100", "4. close": "101.5", "5. adjusted close": "101.1", "6. volume": "1100"},
		"2024-12-30": {"1. open": "98", "2. high": "99", "3. low": "97", "4. close": "98.5", "5. adjusted close": "98.1", "6. volume": "900"}
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

func TestFetchDailyFiltersToWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY_ADJUSTED" {
			t.Errorf("function = %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "secret" {
			t.Errorf("apikey = %q", got)
		}
		w.Write([]byte(seriesBody))
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, "secret", nil)
	bars, err := c.FetchDaily(context.Background(), "AAPL", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-31"))
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2 inside the window", len(bars))
	}
	for _, b := range bars {
		if b.Date == "2024-12-30" {
			t.Fatal("out-of-window day leaked through")
		}
		if b.AdjClose == "" || b.Volume == "" {
			t.Fatalf("incomplete bar: %+v", b)
		}
	}
}

func TestFetchDailyRequiresKey(t *testing.T) {
	c := New(pkghttp.NewClient(), "http://unused", "", nil)
	_, err := c.FetchDaily(context.Background(), "AAPL", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-31"))
	if !errors.Is(err, drepo.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestFetchDailyMapsErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call for symbol NOPE"}`))
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, "secret", nil)
	_, err := c.FetchDaily(context.Background(), "NOPE", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-31"))
	if !errors.Is(err, drepo.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestFetchDailyMapsQuotaNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Quota exhaustion arrives as a 200 with a Note.
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer srv.Close()

	c := New(pkghttp.NewClient(), srv.URL, "secret", nil)
	_, err := c.FetchDaily(context.Background(), "AAPL", mustDay(t, "2025-01-01"), mustDay(t, "2025-01-31"))
	if !errors.Is(err, drepo.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestFetchDailyVolumeFieldFallback(t *testing.T) {
	fields := map[string]string{
		"1. open": "1", "2. high": "2", "3. low": "0.5", "4. close": "1.5",
		"5. volume": "777",
	}
	bar := rawBarFromFields("2025-01-02", fields)
	if bar.Volume != "777" {
		t.Fatalf("volume = %q, want fallback to field 5", bar.Volume)
	}
	if bar.AdjClose != "" {
		t.Fatalf("adj close = %q, want empty for non-adjusted payload", bar.AdjClose)
	}
}
