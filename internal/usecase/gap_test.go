package usecase

import (
	"context"
	"testing"
	"time"

	"FinCache/internal/domain/models"
)

func TestPriceGapEmptyStore(t *testing.T) {
	g := NewGapResolver(newFakeBarStore(), newFakeArticleStore(), fixedNow("2025-03-01"))

	gap, err := g.PriceGap(context.Background(), "AAPL", "yahoo", day("2025-01-01"), day("2025-01-10"))
	if err != nil {
		t.Fatalf("PriceGap: %v", err)
	}
	if gap == nil {
		t.Fatal("expected full-range gap for empty store")
	}
	if !gap.Start.Equal(day("2025-01-01")) || !gap.End.Equal(day("2025-01-10")) {
		t.Fatalf("gap = [%s, %s], want full range", gap.Start, gap.End)
	}
}

func TestPriceGapResumesAfterWatermark(t *testing.T) {
	bars := newFakeBarStore()
	seedBars(t, bars, "AAPL", "yahoo", "2025-01-01", "2025-01-05")
	g := NewGapResolver(bars, newFakeArticleStore(), fixedNow("2025-03-01"))

	gap, err := g.PriceGap(context.Background(), "AAPL", "yahoo", day("2025-01-01"), day("2025-01-10"))
	if err != nil {
		t.Fatalf("PriceGap: %v", err)
	}
	if gap == nil {
		t.Fatal("expected gap")
	}
	if !gap.Start.Equal(day("2025-01-06")) || !gap.End.Equal(day("2025-01-10")) {
		t.Fatalf("gap = [%s, %s], want [2025-01-06, 2025-01-10]", gap.Start, gap.End)
	}
}

func TestPriceGapCovered(t *testing.T) {
	bars := newFakeBarStore()
	seedBars(t, bars, "AAPL", "yahoo", "2025-01-01", "2025-01-10")
	g := NewGapResolver(bars, newFakeArticleStore(), fixedNow("2025-03-01"))

	gap, err := g.PriceGap(context.Background(), "AAPL", "yahoo", day("2025-01-03"), day("2025-01-10"))
	if err != nil {
		t.Fatalf("PriceGap: %v", err)
	}
	if gap != nil {
		t.Fatalf("gap = [%s, %s], want none", gap.Start, gap.End)
	}
}

func TestPriceGapWatermarkBeforeRequestedStart(t *testing.T) {
	bars := newFakeBarStore()
	seedBars(t, bars, "AAPL", "yahoo", "2024-12-01", "2024-12-05")
	g := NewGapResolver(bars, newFakeArticleStore(), fixedNow("2025-03-01"))

	// Resume point 2024-12-06 lies before the requested window; the
	// fetch must not widen the request.
	gap, err := g.PriceGap(context.Background(), "AAPL", "yahoo", day("2025-01-01"), day("2025-01-10"))
	if err != nil {
		t.Fatalf("PriceGap: %v", err)
	}
	if gap == nil {
		t.Fatal("expected gap")
	}
	if !gap.Start.Equal(day("2025-01-01")) || !gap.End.Equal(day("2025-01-10")) {
		t.Fatalf("gap = [%s, %s], want requested range", gap.Start, gap.End)
	}
}

func TestPriceGapIsPerIdentity(t *testing.T) {
	bars := newFakeBarStore()
	seedBars(t, bars, "AAPL", "yahoo", "2025-01-01", "2025-01-10")
	g := NewGapResolver(bars, newFakeArticleStore(), fixedNow("2025-03-01"))

	// Same ticker, different source: the yahoo watermark must not
	// shadow alphavantage.
	gap, err := g.PriceGap(context.Background(), "AAPL", "alphavantage", day("2025-01-01"), day("2025-01-10"))
	if err != nil {
		t.Fatalf("PriceGap: %v", err)
	}
	if gap == nil || !gap.Start.Equal(day("2025-01-01")) {
		t.Fatalf("gap = %+v, want full range for other source", gap)
	}
}

func TestArticleGapEmptyStore(t *testing.T) {
	g := NewGapResolver(newFakeBarStore(), newFakeArticleStore(), fixedNow("2025-03-01"))

	from, ok, err := g.ArticleGap(context.Background(), "nvidia", day("2025-02-20"))
	if err != nil {
		t.Fatalf("ArticleGap: %v", err)
	}
	if !ok || !from.Equal(day("2025-02-20")) {
		t.Fatalf("from = %s ok=%v, want since date", from, ok)
	}
}

func TestArticleGapResumesInclusive(t *testing.T) {
	arts := newFakeArticleStore()
	seedArticle(t, arts, "nvidia", "old story", "2025-02-25T14:00:00Z")
	g := NewGapResolver(newFakeBarStore(), arts, fixedNow("2025-03-01"))

	from, ok, err := g.ArticleGap(context.Background(), "nvidia", day("2025-02-20"))
	if err != nil {
		t.Fatalf("ArticleGap: %v", err)
	}
	// Resume from the watermark day itself: boundary records may be
	// re-fetched, the merge drops duplicates.
	if !ok || !from.Equal(day("2025-02-25")) {
		t.Fatalf("from = %s ok=%v, want 2025-02-25", from, ok)
	}
}

func TestArticleGapNoneWhenWatermarkIsFuture(t *testing.T) {
	arts := newFakeArticleStore()
	seedArticle(t, arts, "nvidia", "scheduled story", "2025-03-05T00:00:00Z")
	g := NewGapResolver(newFakeBarStore(), arts, fixedNow("2025-03-01"))

	_, ok, err := g.ArticleGap(context.Background(), "nvidia", day("2025-02-20"))
	if err != nil {
		t.Fatalf("ArticleGap: %v", err)
	}
	if ok {
		t.Fatal("expected no fetch when resume point is past today")
	}
}

func TestDayTruncatesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2025, 2, 25, 0, 30, 0, 0, loc) // 2025-02-24 23:30 UTC
	if got := Day(in); !got.Equal(day("2025-02-24")) {
		t.Fatalf("Day = %s, want 2025-02-24", got)
	}
}

func seedBars(t *testing.T, s *fakeBarStore, ticker, source, first, last string) {
	t.Helper()
	for d := day(first); !d.After(day(last)); d = d.AddDate(0, 0, 1) {
		b := models.PriceBar{Ticker: ticker, Source: source, Date: d, Open: 1, High: 2, Low: 1, Close: 1.5, AdjClose: 1.5, Volume: 100}
		if err := s.UpsertBar(context.Background(), &b); err != nil {
			t.Fatalf("seed bar: %v", err)
		}
	}
}

func seedArticle(t *testing.T, s *fakeArticleStore, query, title, publishedAt string) {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		t.Fatalf("seed article: %v", err)
	}
	a := models.Article{Query: query, Title: title, PublishedAt: ts.UTC(), Source: "wire"}
	if _, err := s.InsertIfAbsent(context.Background(), &a); err != nil {
		t.Fatalf("seed article: %v", err)
	}
}
