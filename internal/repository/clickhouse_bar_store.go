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

// ClickHouseBarStore implements BarStore on ClickHouse. The table is a
// ReplacingMergeTree keyed by (ticker, source, date), so re-inserting a
// bar for the same day overwrites it; reads use FINAL to collapse
// not-yet-merged duplicates.
type ClickHouseBarStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseBarStore(db *sql.DB, table string) repository.BarStore {
	if table == "" {
		table = "price_bars"
	}
	return &ClickHouseBarStore{db: db, table: table}
}

func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    ticker    LowCardinality(String),
    source    LowCardinality(String),
    date      Date,
    open      Float64,
    high      Float64,
    low       Float64,
    close     Float64,
    adj_close Float64,
    volume    Float64,
    stored_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(stored_at)
ORDER BY (ticker, source, date)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *ClickHouseBarStore) LatestDate(ctx context.Context, ticker, source string) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT date FROM %s WHERE ticker = ? AND source = ? ORDER BY date DESC LIMIT 1", s.table)
	var d time.Time
	err := s.db.QueryRowContext(ctx, q, ticker, source).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return d.UTC(), true, nil
}

func (s *ClickHouseBarStore) UpsertBar(ctx context.Context, b *models.PriceBar) error {
	q := fmt.Sprintf("INSERT INTO %s (ticker, source, date, open, high, low, close, adj_close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		b.Ticker,
		b.Source,
		b.Date,
		b.Open,
		b.High,
		b.Low,
		b.Close,
		b.AdjClose,
		b.Volume,
	)
	return err
}

func (s *ClickHouseBarStore) Range(ctx context.Context, ticker, source string, from, to time.Time) ([]models.PriceBar, error) {
	q := fmt.Sprintf("SELECT ticker, source, date, open, high, low, close, adj_close, volume FROM %s FINAL WHERE ticker = ? AND source = ? AND date >= ? AND date <= ? ORDER BY date ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, source, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		var d time.Time
		if err := rows.Scan(&b.Ticker, &b.Source, &d, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = d.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // connection is owned by the client package
}
