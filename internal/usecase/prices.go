package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCache/internal/domain/models"
	domrepo "FinCache/internal/domain/repository"
	"FinCache/pkg/cache"
	"FinCache/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const fetchLockTTL = 30 * time.Second

// PriceCache is the read-through facade for daily bars and the only
// entry point external callers use. One call resolves the gap, fetches
// exactly the missing sub-range, merges it, and re-reads the full
// requested range from the store so cached and fresh rows are served
// uniformly.
type PriceCache struct {
	gap     *GapResolver
	merger  *Merger
	bars    domrepo.BarStore
	sources map[string]domrepo.PriceSource
	locks   cache.Service // optional cross-instance fetch lock
	metrics domrepo.Metrics
	log     *logger.Logger
	sf      singleflight.Group
}

func NewPriceCache(gap *GapResolver, merger *Merger, bars domrepo.BarStore, sources []domrepo.PriceSource, locks cache.Service, m domrepo.Metrics, log *logger.Logger) *PriceCache {
	byName := make(map[string]domrepo.PriceSource, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	return &PriceCache{
		gap:     gap,
		merger:  merger,
		bars:    bars,
		sources: byName,
		locks:   locks,
		metrics: m,
		log:     log,
	}
}

// GetRange returns all bars for (ticker, source) within [start, end],
// ordered by date ascending, fetching the missing portion upstream
// first. Concurrent identical requests collapse to one upstream fetch.
func (c *PriceCache) GetRange(ctx context.Context, ticker, source string, start, end time.Time) ([]models.PriceBar, error) {
	if ticker == "" {
		return nil, &ValidationError{Msg: "ticker is required"}
	}
	src, ok := c.sources[source]
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown price source %q", source)}
	}
	start, end = Day(start), Day(end)
	if start.After(end) {
		return nil, &ValidationError{Msg: "start must not be after end"}
	}

	key := fmt.Sprintf("prices:%s:%s:%s:%s", source, ticker,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	// Joined callers outlive the first caller's request; the shared
	// flight must not die with its cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.getRange(fetchCtx, src, ticker, source, start, end, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.PriceBar), nil
}

func (c *PriceCache) getRange(ctx context.Context, src domrepo.PriceSource, ticker, source string, start, end time.Time, key string) ([]models.PriceBar, error) {
	began := time.Now()
	defer func() {
		c.metrics.RecordLatency("price_get_range", time.Since(began).Seconds())
	}()

	gap, err := c.gap.PriceGap(ctx, ticker, source, start, end)
	if err != nil {
		return nil, err
	}

	fetchFailed := false
	if gap == nil {
		c.metrics.RecordGap("prices", "covered")
	} else {
		c.metrics.RecordGap("prices", "fetch")
		if c.acquireFetchLock(ctx, key) {
			defer c.releaseFetchLock(key)

			raw, ferr := src.FetchDaily(ctx, ticker, gap.Start, gap.End)
			switch {
			case errors.Is(ferr, domrepo.ErrNotConfigured):
				return nil, ferr
			case ferr != nil:
				fetchFailed = true
				c.metrics.RecordUpstreamCall(source, "error")
				c.log.Warn("price fetch failed",
					logger.String("ticker", ticker),
					logger.String("source", source),
					logger.Error(ferr))
			default:
				c.metrics.RecordUpstreamCall(source, "ok")
				c.merger.MergeBars(ctx, ticker, source, raw)
			}
		}
	}

	bars, err := c.bars.Range(ctx, ticker, source, start, end)
	if err != nil {
		return nil, fmt.Errorf("read price range: %w", err)
	}
	if len(bars) == 0 && fetchFailed {
		return nil, ErrUnavailable
	}
	return bars, nil
}

// acquireFetchLock takes the cross-instance lock for an upstream fetch.
// Losing the lock means another instance is fetching the same window;
// serving the current store contents is then good enough because the
// merge is idempotent.
func (c *PriceCache) acquireFetchLock(ctx context.Context, key string) bool {
	if c.locks == nil {
		return true
	}
	ok, err := c.locks.TryLock(ctx, "lock:"+key, fetchLockTTL)
	if err != nil {
		// Lock service trouble must not block reads.
		return true
	}
	return ok
}

func (c *PriceCache) releaseFetchLock(key string) {
	if c.locks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.locks.Unlock(ctx, "lock:"+key)
}
