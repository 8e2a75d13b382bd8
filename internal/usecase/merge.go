package usecase

import (
	"context"
	"time"

	"FinCache/internal/domain/models"
	domrepo "FinCache/internal/domain/repository"
	"FinCache/internal/normalize"
	"FinCache/pkg/logger"
)

// Merger normalizes fetched rows and writes them idempotently. Price
// records overwrite by (ticker, source, date); articles are
// first-write-wins by (query, title). A failing record is logged and
// skipped, never aborting the batch: with idempotent writes a duplicate
// or retried row is harmless.
type Merger struct {
	bars     domrepo.BarStore
	articles domrepo.ArticleStore
	pub      domrepo.Publisher // optional
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewMerger(bars domrepo.BarStore, articles domrepo.ArticleStore, pub domrepo.Publisher, m domrepo.Metrics, log *logger.Logger) *Merger {
	return &Merger{bars: bars, articles: articles, pub: pub, metrics: m, log: log}
}

// MergeBars upserts normalized bars and returns how many were stored.
func (m *Merger) MergeBars(ctx context.Context, ticker, source string, raw []models.RawBar) int {
	bars := normalize.Bars(ticker, source, raw)
	stored := 0
	var first, last time.Time
	for i := range bars {
		if err := m.bars.UpsertBar(ctx, &bars[i]); err != nil {
			m.metrics.RecordError("bar_upsert")
			m.log.Warn("bar upsert failed",
				logger.String("ticker", ticker),
				logger.String("source", source),
				logger.String("date", bars[i].Date.Format("2006-01-02")),
				logger.Error(err))
			continue
		}
		stored++
		d := bars[i].Date
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	if stored > 0 {
		m.metrics.RecordRowsMerged("prices", stored)
		// The advertised window covers rows that were actually
		// written, not the whole fetched batch.
		m.publish(ctx, &models.IngestEvent{
			Kind:     "prices",
			Identity: ticker,
			Source:   source,
			Rows:     stored,
			From:     first,
			To:       last,
			At:       time.Now().UTC(),
		})
	}
	return stored
}

// MergeArticles inserts normalized articles, skipping titles already
// stored for the query, and returns how many rows were written.
func (m *Merger) MergeArticles(ctx context.Context, query string, raw []models.RawArticle) int {
	arts := normalize.Articles(query, raw)
	inserted := 0
	var oldest, newest time.Time
	for i := range arts {
		ok, err := m.articles.InsertIfAbsent(ctx, &arts[i])
		if err != nil {
			m.metrics.RecordError("article_insert")
			m.log.Warn("article insert failed",
				logger.String("query", query),
				logger.String("title", arts[i].Title),
				logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		inserted++
		ts := arts[i].PublishedAt
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if ts.After(newest) {
			newest = ts
		}
	}

	if inserted > 0 {
		m.metrics.RecordRowsMerged("articles", inserted)
		m.publish(ctx, &models.IngestEvent{
			Kind:     "articles",
			Identity: query,
			Rows:     inserted,
			From:     oldest,
			To:       newest,
			At:       time.Now().UTC(),
		})
	}
	return inserted
}

func (m *Merger) publish(ctx context.Context, ev *models.IngestEvent) {
	if m.pub == nil {
		return
	}
	if err := m.pub.PublishIngest(ctx, ev); err != nil {
		m.metrics.RecordError("ingest_publish")
		m.log.Warn("ingest event publish failed", logger.Error(err))
	}
}
