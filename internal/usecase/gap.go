package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "FinCache/internal/domain/repository"
)

// Range is a closed date interval [Start, End].
type Range struct {
	Start time.Time
	End   time.Time
}

// GapResolver computes the minimal sub-range that must be fetched from
// upstream for a requested range, given the store's watermark. It is
// the single source of truth for avoiding redundant upstream calls.
type GapResolver struct {
	bars     domrepo.BarStore
	articles domrepo.ArticleStore
	now      func() time.Time
}

func NewGapResolver(bars domrepo.BarStore, articles domrepo.ArticleStore, now func() time.Time) *GapResolver {
	if now == nil {
		now = time.Now
	}
	return &GapResolver{bars: bars, articles: articles, now: now}
}

// PriceGap returns the contiguous sub-range of [start, end] missing
// from the store for (ticker, source), or nil when the range is fully
// covered. The watermark resume point is the day after the latest
// stored date.
func (g *GapResolver) PriceGap(ctx context.Context, ticker, source string, start, end time.Time) (*Range, error) {
	latest, ok, err := g.bars.LatestDate(ctx, ticker, source)
	if err != nil {
		return nil, fmt.Errorf("price watermark %s/%s: %w", ticker, source, err)
	}
	if !ok {
		return &Range{Start: start, End: end}, nil
	}

	latest = Day(latest)
	if !latest.Before(Day(end)) {
		return nil, nil
	}
	fetchStart := latest.AddDate(0, 0, 1)
	if fetchStart.Before(start) {
		fetchStart = start
	}
	if fetchStart.After(end) {
		return nil, nil
	}
	return &Range{Start: fetchStart, End: end}, nil
}

// ArticleGap returns the resume point for a query, or ok=false when no
// fetch is needed. Articles resume inclusively from the latest stored
// timestamp: records published exactly at the boundary may be
// re-fetched and are de-duplicated at merge time. The resume point is
// clamped to today since a future window is meaningless.
func (g *GapResolver) ArticleGap(ctx context.Context, query string, since time.Time) (time.Time, bool, error) {
	latest, ok, err := g.articles.LatestDate(ctx, query)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("article watermark %q: %w", query, err)
	}

	from := Day(since)
	if ok {
		if l := Day(latest); !l.Before(from) {
			from = l
		}
	}
	if today := Day(g.now()); from.After(today) {
		return time.Time{}, false, nil
	}
	return from, true, nil
}

// Day truncates t to day granularity in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
