package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinCache/internal/domain/models"
	"FinCache/pkg/logger"
)

func testLogger(t interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func num(s string) json.Number { return json.Number(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// fixedNow returns a clock pinned to the given day.
func fixedNow(s string) func() time.Time {
	t := day(s)
	return func() time.Time { return t }
}

type fakeBarStore struct {
	mu        sync.Mutex
	rows      map[string]models.PriceBar
	failDates map[string]bool
}

func newFakeBarStore() *fakeBarStore {
	return &fakeBarStore{rows: make(map[string]models.PriceBar), failDates: make(map[string]bool)}
}

func barKey(ticker, source string, d time.Time) string {
	return fmt.Sprintf("%s|%s|%s", ticker, source, d.Format("2006-01-02"))
}

func (s *fakeBarStore) Init(context.Context) error { return nil }

func (s *fakeBarStore) LatestDate(_ context.Context, ticker, source string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	found := false
	for _, b := range s.rows {
		if b.Ticker == ticker && b.Source == source && (!found || b.Date.After(latest)) {
			latest = b.Date
			found = true
		}
	}
	return latest, found, nil
}

func (s *fakeBarStore) UpsertBar(_ context.Context, b *models.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDates[b.Date.Format("2006-01-02")] {
		return errors.New("constraint violation")
	}
	s.rows[barKey(b.Ticker, b.Source, b.Date)] = *b
	return nil
}

func (s *fakeBarStore) Range(_ context.Context, ticker, source string, from, to time.Time) ([]models.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PriceBar
	for _, b := range s.rows {
		if b.Ticker == ticker && b.Source == source && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *fakeBarStore) Health(context.Context) error { return nil }
func (s *fakeBarStore) Close() error                 { return nil }

func (s *fakeBarStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeArticleStore struct {
	mu         sync.Mutex
	rows       map[string]models.Article
	failTitles map[string]bool
}

func newFakeArticleStore() *fakeArticleStore {
	return &fakeArticleStore{rows: make(map[string]models.Article), failTitles: make(map[string]bool)}
}

func (s *fakeArticleStore) Init(context.Context) error { return nil }

func (s *fakeArticleStore) LatestDate(_ context.Context, query string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	found := false
	for _, a := range s.rows {
		if a.Query == query && (!found || a.PublishedAt.After(latest)) {
			latest = a.PublishedAt
			found = true
		}
	}
	return latest, found, nil
}

func (s *fakeArticleStore) InsertIfAbsent(_ context.Context, a *models.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTitles[a.Title] {
		return false, errors.New("write failed")
	}
	key := a.Query + "|" + a.Title
	if _, exists := s.rows[key]; exists {
		return false, nil
	}
	s.rows[key] = *a
	return true, nil
}

func (s *fakeArticleStore) Since(_ context.Context, query string, from time.Time) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Article
	for _, a := range s.rows {
		if a.Query == query && !a.PublishedAt.Before(from) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (s *fakeArticleStore) Health(context.Context) error { return nil }
func (s *fakeArticleStore) Close() error                 { return nil }

func (s *fakeArticleStore) get(query, title string) (models.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[query+"|"+title]
	return a, ok
}

// fakePriceSource serves canned bars and records the ranges requested.
type fakePriceSource struct {
	mu       sync.Mutex
	name     string
	bars     []models.RawBar
	err      error
	calls    int
	requests []Range
}

func (f *fakePriceSource) Name() string { return f.name }

func (f *fakePriceSource) FetchDaily(_ context.Context, _ string, start, end time.Time) ([]models.RawBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, Range{Start: start, End: end})
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RawBar
	for _, b := range f.bars {
		d := day(b.Date)
		if !d.Before(start) && !d.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// fakeNewsSource serves scripted pages; errAt maps a 1-based call
// number to the error returned that many times before succeeding.
type fakeNewsSource struct {
	mu       sync.Mutex
	pages    [][]models.RawArticle
	pageSize int
	errs     []error // consumed first, one per call
	calls    int
}

func (f *fakeNewsSource) Name() string        { return "fakenews" }
func (f *fakeNewsSource) MaxPageSize() int    { return f.pageSize }
func (f *fakeNewsSource) MaxLookbackDays() int { return 29 }

func (f *fakeNewsSource) FetchPage(_ context.Context, _, _ string, _, _ time.Time, _ int) ([]models.RawArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counts: make(map[string]int)} }

func (m *fakeMetrics) bump(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[k]++
}

func (m *fakeMetrics) RecordUpstreamCall(provider, outcome string) {
	m.bump("upstream:" + provider + ":" + outcome)
}
func (m *fakeMetrics) RecordGap(kind, outcome string) { m.bump("gap:" + kind + ":" + outcome) }
func (m *fakeMetrics) RecordRowsMerged(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts["merged:"+kind] += n
}
func (m *fakeMetrics) RecordError(kind string)              { m.bump("error:" + kind) }
func (m *fakeMetrics) RecordLatency(string, float64)        {}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.IngestEvent
}

func (p *fakePublisher) PublishIngest(_ context.Context, ev *models.IngestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }
