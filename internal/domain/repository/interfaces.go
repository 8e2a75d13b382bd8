package repository

import (
	"context"
	"time"

	"FinCache/internal/domain/models"
)

// BarStore persists and serves canonical price bars. Writes are
// idempotent by (ticker, source, date): a second write for the same key
// replaces the row.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables
	// LatestDate returns the most recent stored date for the identity,
	// or ok=false when nothing is stored yet.
	LatestDate(ctx context.Context, ticker, source string) (time.Time, bool, error)
	UpsertBar(ctx context.Context, bar *models.PriceBar) error
	// Range returns bars within [from, to] ordered by date ascending.
	Range(ctx context.Context, ticker, source string, from, to time.Time) ([]models.PriceBar, error)
	Health(ctx context.Context) error
	Close() error
}

// ArticleStore persists and serves canonical articles. Inserts are
// first-write-wins by (query, title).
type ArticleStore interface {
	Init(ctx context.Context) error
	// LatestDate returns the most recent stored publication timestamp
	// for the query, or ok=false when nothing is stored yet.
	LatestDate(ctx context.Context, query string) (time.Time, bool, error)
	// InsertIfAbsent stores the article unless one with the same
	// (query, title) exists. Reports whether a row was written.
	InsertIfAbsent(ctx context.Context, a *models.Article) (bool, error)
	// Since returns articles published at or after from, newest first.
	Since(ctx context.Context, query string, from time.Time) ([]models.Article, error)
	Health(ctx context.Context) error
	Close() error
}

// PriceSource fetches raw daily bars from one upstream provider.
type PriceSource interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]models.RawBar, error)
}

// NewsSource fetches one page of raw articles. A single call returns at
// most MaxPageSize items; covering a window takes a paginated walk.
type NewsSource interface {
	Name() string
	FetchPage(ctx context.Context, query, lang string, from, to time.Time, pageSize int) ([]models.RawArticle, error)
	MaxPageSize() int
	// MaxLookbackDays is how far in the past "from" may lie before the
	// provider rejects the call.
	MaxLookbackDays() int
}

// Publisher emits ingest events after merges.
type Publisher interface {
	PublishIngest(ctx context.Context, ev *models.IngestEvent) error
	Close() error
}

// Metrics records operational counters for the ingest path.
type Metrics interface {
	RecordUpstreamCall(provider, outcome string)
	RecordGap(kind, outcome string)
	RecordRowsMerged(kind string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
