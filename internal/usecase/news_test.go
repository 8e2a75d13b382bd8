package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"FinCache/internal/domain/models"
	domrepo "FinCache/internal/domain/repository"
	pkgcache "FinCache/pkg/cache"
)

func newTestNewsCache(t *testing.T, arts *fakeArticleStore, src *fakeNewsSource) *NewsCache {
	t.Helper()
	log := testLogger(t)
	metrics := newFakeMetrics()
	bars := newFakeBarStore()
	now := fixedNow("2025-03-01")
	gap := NewGapResolver(bars, arts, now)
	walker := NewWindowWalker(src, fastPolicy(), NewestFirst, metrics, log)
	walker.Now = now
	merger := NewMerger(bars, arts, nil, metrics, log)
	return NewNewsCache(gap, walker, merger, arts, nil, metrics, log, 30, now)
}

func TestGetArticlesRejectsStaleLookback(t *testing.T) {
	src := &fakeNewsSource{pageSize: 3}
	cache := newTestNewsCache(t, newFakeArticleStore(), src)

	_, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-01-01"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if src.calls != 0 {
		t.Fatalf("provider called %d times before validation", src.calls)
	}
}

func TestGetArticlesRejectsEmptyQuery(t *testing.T) {
	cache := newTestNewsCache(t, newFakeArticleStore(), &fakeNewsSource{pageSize: 3})
	_, err := cache.GetArticles(context.Background(), "", "en", day("2025-02-20"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestGetArticlesEmptyStoreFetchesAndServesNewestFirst(t *testing.T) {
	now := day("2025-03-01")
	src := &fakeNewsSource{
		pageSize: 3,
		pages: [][]models.RawArticle{{
			rawArticle("second", now.Add(-30*time.Hour).Format(time.RFC3339)),
			rawArticle("first", now.Add(-10*time.Hour).Format(time.RFC3339)),
		}},
	}
	cache := newTestNewsCache(t, newFakeArticleStore(), src)

	got, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
	if err != nil {
		t.Fatalf("GetArticles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("articles = %d, want 2", len(got))
	}
	if got[0].Title != "first" || got[1].Title != "second" {
		t.Fatalf("order = [%s, %s], want newest first", got[0].Title, got[1].Title)
	}
}

func TestGetArticlesBoundaryRefetchDoesNotDuplicate(t *testing.T) {
	now := day("2025-03-01")
	arts := newFakeArticleStore()
	seedArticle(t, arts, "nvidia", "boundary story", "2025-02-25T10:00:00Z")
	src := &fakeNewsSource{
		pageSize: 3,
		pages: [][]models.RawArticle{{
			rawArticle("fresh story", now.Add(-5*time.Hour).Format(time.RFC3339)),
			rawArticle("boundary story", "2025-02-25T10:00:00Z"),
		}},
	}
	cache := newTestNewsCache(t, arts, src)

	got, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
	if err != nil {
		t.Fatalf("GetArticles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("articles = %d, want 2 (boundary re-fetch deduplicated)", len(got))
	}
}

func TestGetArticlesCoveredWindowSkipsProvider(t *testing.T) {
	arts := newFakeArticleStore()
	seedArticle(t, arts, "nvidia", "future-dated story", "2025-03-02T10:00:00Z")
	src := &fakeNewsSource{pageSize: 3}
	cache := newTestNewsCache(t, arts, src)

	got, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
	if err != nil {
		t.Fatalf("GetArticles: %v", err)
	}
	if src.calls != 0 {
		t.Fatalf("provider called %d times with a future watermark", src.calls)
	}
	if len(got) != 1 {
		t.Fatalf("articles = %d, want 1 stored row", len(got))
	}
}

func TestGetArticlesUnavailableWhenWalkFailsOnEmptyStore(t *testing.T) {
	src := &fakeNewsSource{pageSize: 3, errs: []error{domrepo.ErrRejected}}
	cache := newTestNewsCache(t, newFakeArticleStore(), src)

	_, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestGetArticlesPartialWalkStillServes(t *testing.T) {
	now := day("2025-03-01")
	firstPage := []models.RawArticle{
		rawArticle("p0", now.Add(-1*time.Hour).Format(time.RFC3339)),
		rawArticle("p1", now.Add(-2*time.Hour).Format(time.RFC3339)),
		rawArticle("p2", now.Add(-3*time.Hour).Format(time.RFC3339)),
	}
	src := &fakeNewsSource{
		pageSize: 3,
		errs:     []error{nil, domrepo.ErrUpstream},
		pages:    [][]models.RawArticle{firstPage},
	}
	cache := newTestNewsCache(t, newFakeArticleStore(), src)

	got, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
	if err != nil {
		t.Fatalf("GetArticles: %v, partial results must be served", err)
	}
	if len(got) != 3 {
		t.Fatalf("articles = %d, want the page stored before the abort", len(got))
	}
}

func TestGetArticlesSecondCallSkipsCoveredWindow(t *testing.T) {
	now := day("2025-03-01")
	src := &fakeNewsSource{
		pageSize: 3,
		pages: [][]models.RawArticle{
			{rawArticle("story", now.Format(time.RFC3339))},
		},
	}
	cache := newTestNewsCache(t, newFakeArticleStore(), src)

	if _, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20")); err != nil {
		t.Fatalf("first GetArticles: %v", err)
	}
	callsAfterFirst := src.calls
	if _, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20")); err != nil {
		t.Fatalf("second GetArticles: %v", err)
	}
	// The watermark now sits on today, so the second call still probes
	// the provider for anything newer, but only once.
	if src.calls-callsAfterFirst > 1 {
		t.Fatalf("second call made %d provider calls, want at most 1", src.calls-callsAfterFirst)
	}
}

// gatedArticleStore signals each store read and holds it open until
// released, so tests can sequence concurrent callers.
type gatedArticleStore struct {
	*fakeArticleStore
	reading chan struct{}
	gate    chan struct{}
}

func (s *gatedArticleStore) Since(ctx context.Context, query string, from time.Time) ([]models.Article, error) {
	s.reading <- struct{}{}
	<-s.gate
	return s.fakeArticleStore.Since(ctx, query, from)
}

func waitForRead(t *testing.T, ch chan struct{}, who string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never reached the store read", who)
	}
}

func TestGetArticlesConcurrentCallersKeepTheirSinceFilter(t *testing.T) {
	arts := newFakeArticleStore()
	for i := 0; i < 9; i++ {
		seedArticle(t, arts, "nvidia", fmt.Sprintf("old story %d", i),
			day("2025-02-20").AddDate(0, 0, i).Format(time.RFC3339))
	}
	seedArticle(t, arts, "nvidia", "today story", "2025-03-01T08:00:00Z")
	gated := &gatedArticleStore{
		fakeArticleStore: arts,
		reading:          make(chan struct{}),
		gate:             make(chan struct{}),
	}

	log := testLogger(t)
	metrics := newFakeMetrics()
	now := fixedNow("2025-03-01")
	gap := NewGapResolver(newFakeBarStore(), gated, now)
	walker := NewWindowWalker(&fakeNewsSource{pageSize: 3}, fastPolicy(), NewestFirst, metrics, log)
	walker.Now = now
	merger := NewMerger(newFakeBarStore(), gated, nil, metrics, log)
	cache := NewNewsCache(gap, walker, merger, gated, nil, metrics, log, 30, now)

	type result struct {
		arts []models.Article
		err  error
	}
	resWide := make(chan result, 1)
	resNarrow := make(chan result, 1)
	go func() {
		got, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
		resWide <- result{got, err}
	}()
	waitForRead(t, gated.reading, "wide caller")

	go func() {
		got, err := cache.GetArticles(context.Background(), "nvidia", "en", day("2025-03-01"))
		resNarrow <- result{got, err}
	}()
	// The second caller asks for a different window, so it must run its
	// own store read instead of joining the in-flight call.
	waitForRead(t, gated.reading, "narrow caller")
	close(gated.gate)

	wide := <-resWide
	if wide.err != nil {
		t.Fatalf("wide caller: %v", wide.err)
	}
	if len(wide.arts) != 10 {
		t.Fatalf("wide caller rows = %d, want 10", len(wide.arts))
	}
	narrow := <-resNarrow
	if narrow.err != nil {
		t.Fatalf("narrow caller: %v", narrow.err)
	}
	if len(narrow.arts) != 1 || narrow.arts[0].Title != "today story" {
		t.Fatalf("narrow caller rows = %d, want only the story inside its window", len(narrow.arts))
	}
}

// panickyNewsSource simulates a provider client bug mid-walk.
type panickyNewsSource struct {
	fakeNewsSource
}

func (p *panickyNewsSource) FetchPage(context.Context, string, string, time.Time, time.Time, int) ([]models.RawArticle, error) {
	panic("page decode bug")
}

func TestGetArticlesReleasesFetchLockOnPanic(t *testing.T) {
	locks := pkgcache.NewMemoryCache()
	defer locks.Close()

	log := testLogger(t)
	metrics := newFakeMetrics()
	arts := newFakeArticleStore()
	now := fixedNow("2025-03-01")
	gap := NewGapResolver(newFakeBarStore(), arts, now)
	walker := NewWindowWalker(&panickyNewsSource{fakeNewsSource{pageSize: 3}}, fastPolicy(), NewestFirst, metrics, log)
	walker.Now = now
	merger := NewMerger(newFakeBarStore(), arts, nil, metrics, log)
	cache := NewNewsCache(gap, walker, merger, arts, locks, metrics, log, 30, now)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("walk panic did not propagate")
			}
		}()
		_, _ = cache.GetArticles(context.Background(), "nvidia", "en", day("2025-02-20"))
	}()

	ok, err := locks.TryLock(context.Background(), "lock:articles:nvidia:2025-02-20", time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if !ok {
		t.Fatal("fetch lock still held after the walk panicked")
	}
}
