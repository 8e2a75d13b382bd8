package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	xlogger "FinCache/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeScorer struct {
	verdict string
	err     error
}

func (f *fakeScorer) Score(_ context.Context, _, _, _ string) (string, error) {
	return f.verdict, f.err
}

func newTestHandler(t *testing.T, scorer *fakeScorer) *MarketEchoHandler {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewMarketEchoHandler(log, nil, nil, scorer, []string{"AAPL", "MSFT"}, nil)
}

func doRequest(h *MarketEchoHandler, target string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStocksYahooRejectsMissingParams(t *testing.T) {
	rec := doRequest(newTestHandler(t, nil), "/api/stocks/yf?symbol=AAPL")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStocksYahooRejectsMalformedDate(t *testing.T) {
	rec := doRequest(newTestHandler(t, nil), "/api/stocks/yf?symbol=AAPL&start=01.02.2025&end=2025-02-10")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStocksYahooRejectsUnknownSymbol(t *testing.T) {
	rec := doRequest(newTestHandler(t, nil), "/api/stocks/yf?symbol=NOPE&start=2025-02-01&end=2025-02-10")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not served") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestNewsRejectsMissingQuery(t *testing.T) {
	rec := doRequest(newTestHandler(t, nil), "/api/news?from=2025-02-01")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeReturnsVerdict(t *testing.T) {
	h := newTestHandler(t, &fakeScorer{verdict: "+3"})
	rec := doRequest(h, "/api/analyze?title=chips+up&topic=nvidia")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"+3"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAnalyzeMapsScorerFailure(t *testing.T) {
	h := newTestHandler(t, &fakeScorer{err: context.DeadlineExceeded})
	rec := doRequest(h, "/api/analyze?title=chips+up&topic=nvidia")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
