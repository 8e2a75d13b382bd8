package usecase

import (
	"context"
	"fmt"
	"time"

	"FinCache/pkg/logger"
	"FinCache/pkg/queue"
)

// RefreshRequest is the payload of a scheduled or externally submitted
// refresh job: re-run the read-through path for an identity so the
// store stays warm.
type RefreshRequest struct {
	Kind   string `json:"kind"` // "prices" or "articles"
	Ticker string `json:"ticker,omitempty"`
	Source string `json:"source,omitempty"`
	Query  string `json:"query,omitempty"`
	Lang   string `json:"lang,omitempty"`
	Days   int    `json:"days,omitempty"`
}

const refreshMessageType = "refresh.request"

// RefreshJob drains refresh requests through the same facades that
// serve interactive reads, so a refresh is just a cache read whose
// result is discarded.
type RefreshJob struct {
	prices *PriceCache
	news   *NewsCache
	log    *logger.Logger
	now    func() time.Time
}

func NewRefreshJob(prices *PriceCache, news *NewsCache, log *logger.Logger, now func() time.Time) *RefreshJob {
	if now == nil {
		now = time.Now
	}
	return &RefreshJob{prices: prices, news: news, log: log, now: now}
}

func (j *RefreshJob) Name() string { return "refresh" }
func (j *RefreshJob) Type() string { return refreshMessageType }

func (j *RefreshJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[RefreshRequest](payload)
	if err != nil {
		return fmt.Errorf("refresh payload: %w", err)
	}
	return j.Run(ctx, req)
}

// Run executes one refresh request.
func (j *RefreshJob) Run(ctx context.Context, req *RefreshRequest) error {
	days := req.Days
	if days <= 0 {
		days = 7
	}
	end := Day(j.now())
	start := end.AddDate(0, 0, -days)

	switch req.Kind {
	case "prices":
		_, err := j.prices.GetRange(ctx, req.Ticker, req.Source, start, end)
		if err != nil {
			return fmt.Errorf("refresh prices %s/%s: %w", req.Ticker, req.Source, err)
		}
	case "articles":
		_, err := j.news.GetArticles(ctx, req.Query, req.Lang, start)
		if err != nil {
			return fmt.Errorf("refresh articles %q: %w", req.Query, err)
		}
	default:
		return fmt.Errorf("unknown refresh kind %q", req.Kind)
	}

	j.log.Debug("refresh done",
		logger.String("kind", req.Kind),
		logger.String("ticker", req.Ticker),
		logger.String("query", req.Query))
	return nil
}

// RefreshScheduler periodically enqueues refresh requests for the
// configured identities.
type RefreshScheduler struct {
	q        queue.QueueService
	interval time.Duration
	symbols  []string
	source   string
	queries  []string
	lang     string
	log      *logger.Logger
}

func NewRefreshScheduler(q queue.QueueService, interval time.Duration, symbols []string, source string, queries []string, lang string, log *logger.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RefreshScheduler{
		q:        q,
		interval: interval,
		symbols:  symbols,
		source:   source,
		queries:  queries,
		lang:     lang,
		log:      log,
	}
}

// Start runs the scheduler loop until ctx is done.
func (s *RefreshScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueAll(ctx)
		}
	}
}

func (s *RefreshScheduler) enqueueAll(ctx context.Context) {
	for _, sym := range s.symbols {
		req := RefreshRequest{Kind: "prices", Ticker: sym, Source: s.source}
		if err := s.q.PublishMessage(ctx, refreshMessageType, req); err != nil {
			s.log.Warn("refresh enqueue failed", logger.String("ticker", sym), logger.Error(err))
		}
	}
	for _, q := range s.queries {
		req := RefreshRequest{Kind: "articles", Query: q, Lang: s.lang}
		if err := s.q.PublishMessage(ctx, refreshMessageType, req); err != nil {
			s.log.Warn("refresh enqueue failed", logger.String("query", q), logger.Error(err))
		}
	}
}
