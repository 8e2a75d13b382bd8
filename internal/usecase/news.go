package usecase

import (
	"context"
	"fmt"
	"time"

	"FinCache/internal/domain/models"
	domrepo "FinCache/internal/domain/repository"
	"FinCache/pkg/cache"
	"FinCache/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// NewsCache is the read-through facade for articles. Articles are
// open-ended forward in time: a request carries a since-date and the
// cache fetches everything between the watermark and now.
type NewsCache struct {
	gap          *GapResolver
	walker       *WindowWalker
	merger       *Merger
	articles     domrepo.ArticleStore
	locks        cache.Service // optional cross-instance fetch lock
	metrics      domrepo.Metrics
	log          *logger.Logger
	sf           singleflight.Group
	now          func() time.Time
	lookbackDays int
}

func NewNewsCache(gap *GapResolver, walker *WindowWalker, merger *Merger, articles domrepo.ArticleStore, locks cache.Service, m domrepo.Metrics, log *logger.Logger, lookbackDays int, now func() time.Time) *NewsCache {
	if now == nil {
		now = time.Now
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &NewsCache{
		gap:          gap,
		walker:       walker,
		merger:       merger,
		articles:     articles,
		locks:        locks,
		metrics:      m,
		log:          log,
		now:          now,
		lookbackDays: lookbackDays,
	}
}

// GetArticles returns all stored articles for the query published at or
// after since, newest first, fetching the missing window upstream
// first. A since-date older than the allowed lookback is rejected
// before any provider call.
func (c *NewsCache) GetArticles(ctx context.Context, query, lang string, since time.Time) ([]models.Article, error) {
	if query == "" {
		return nil, &ValidationError{Msg: "query is required"}
	}
	since = Day(since)
	today := Day(c.now())
	if today.Sub(since) > time.Duration(c.lookbackDays)*24*time.Hour {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("news can only be requested for the last %d days", c.lookbackDays),
		}
	}

	// The served result depends on the since filter, so calls may only
	// share a flight when both query and since match.
	key := "articles:" + query + ":" + since.Format("2006-01-02")
	// Joined callers outlive the first caller's request; the shared
	// flight must not die with its cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.getArticles(fetchCtx, query, lang, since, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Article), nil
}

func (c *NewsCache) getArticles(ctx context.Context, query, lang string, since time.Time, key string) ([]models.Article, error) {
	began := time.Now()
	defer func() {
		c.metrics.RecordLatency("news_get_articles", time.Since(began).Seconds())
	}()

	from, needFetch, err := c.gap.ArticleGap(ctx, query, since)
	if err != nil {
		return nil, err
	}

	var walkErr error
	fetched := 0
	if !needFetch {
		c.metrics.RecordGap("articles", "covered")
	} else {
		c.metrics.RecordGap("articles", "fetch")
		if c.acquireFetchLock(ctx, key) {
			defer c.releaseFetchLock(key)
			raw, werr := c.walker.Walk(ctx, query, lang, from)
			walkErr = werr
			fetched = len(raw)
			if len(raw) > 0 {
				c.merger.MergeArticles(ctx, query, raw)
			}
		}
	}

	arts, err := c.articles.Since(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}
	// An aborted walk that still brought rows degrades to partial
	// data; only a fully failed fetch over an empty store is
	// unavailable.
	if len(arts) == 0 && walkErr != nil && fetched == 0 {
		return nil, ErrUnavailable
	}
	return arts, nil
}

func (c *NewsCache) acquireFetchLock(ctx context.Context, key string) bool {
	if c.locks == nil {
		return true
	}
	ok, err := c.locks.TryLock(ctx, "lock:"+key, fetchLockTTL)
	if err != nil {
		return true
	}
	return ok
}

func (c *NewsCache) releaseFetchLock(key string) {
	if c.locks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.locks.Unlock(ctx, "lock:"+key)
}
