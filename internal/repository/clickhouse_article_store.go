package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"FinCache/internal/domain/models"
	"FinCache/internal/domain/repository"
)

// ClickHouseArticleStore implements ArticleStore on ClickHouse.
// Articles are immutable once written: InsertIfAbsent checks for an
// existing (query, title) row before inserting, so a boundary re-fetch
// or a provider that rewrites content never replaces the stored copy.
type ClickHouseArticleStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseArticleStore(db *sql.DB, table string) repository.ArticleStore {
	if table == "" {
		table = "news_articles"
	}
	return &ClickHouseArticleStore{db: db, table: table}
}

func (s *ClickHouseArticleStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    query        LowCardinality(String),
    title        String,
    published_at DateTime,
    description  String,
    content      String,
    source       String,
    author       String,
    url          String,
    stored_at    DateTime DEFAULT now()
) ENGINE = MergeTree
ORDER BY (query, title)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *ClickHouseArticleStore) LatestDate(ctx context.Context, query string) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT published_at FROM %s WHERE query = ? ORDER BY published_at DESC LIMIT 1", s.table)
	var ts time.Time
	err := s.db.QueryRowContext(ctx, q, query).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts.UTC(), true, nil
}

// InsertIfAbsent writes the article unless a row with the same
// (query, title) already exists. The check and the insert are not one
// atomic statement, which is fine here: a racing duplicate insert only
// produces an extra identical row that reads with LIMIT 1 BY title
// collapse away.
func (s *ClickHouseArticleStore) InsertIfAbsent(ctx context.Context, a *models.Article) (bool, error) {
	check := fmt.Sprintf("SELECT count() FROM %s WHERE query = ? AND title = ?", s.table)
	var n uint64
	if err := s.db.QueryRowContext(ctx, check, a.Query, a.Title).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	insert := fmt.Sprintf("INSERT INTO %s (query, title, published_at, description, content, source, author, url) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, insert,
		a.Query,
		a.Title,
		a.PublishedAt,
		a.Description,
		a.Content,
		a.Source,
		a.Author,
		a.URL,
	); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ClickHouseArticleStore) Since(ctx context.Context, query string, from time.Time) ([]models.Article, error) {
	q := fmt.Sprintf("SELECT query, title, published_at, description, content, source, author, url FROM %s WHERE query = ? AND published_at >= ? ORDER BY published_at DESC LIMIT 1 BY title", s.table)
	rows, err := s.db.QueryContext(ctx, q, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var arts []models.Article
	for rows.Next() {
		var a models.Article
		var ts time.Time
		if err := rows.Scan(&a.Query, &a.Title, &ts, &a.Description, &a.Content, &a.Source, &a.Author, &a.URL); err != nil {
			return nil, err
		}
		a.PublishedAt = ts.UTC()
		arts = append(arts, a)
	}
	return arts, rows.Err()
}

func (s *ClickHouseArticleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseArticleStore) Close() error {
	return nil
}
