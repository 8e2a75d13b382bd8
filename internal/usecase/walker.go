package usecase

import (
	"context"
	"errors"
	"time"

	"FinCache/internal/domain/models"
	domrepo "FinCache/internal/domain/repository"
	"FinCache/pkg/logger"
	"FinCache/pkg/retry"
)

// Direction is the sort order of the provider's pages, which decides
// which window boundary slides during a walk.
type Direction int

const (
	// NewestFirst providers return the most recent items first; the
	// "to" boundary slides backward toward the fixed "from".
	NewestFirst Direction = iota
	// OldestFirst providers return the oldest items first; the "from"
	// boundary slides forward toward "now".
	OldestFirst
)

// maxWalkPages bounds any walk regardless of provider behavior.
const maxWalkPages = 50

// WindowWalker drives repeated provider calls to cover a window when a
// single call cannot, for providers whose only pagination primitive is
// a sliding time window. Each Walk starts fresh; walks are not
// restartable.
type WindowWalker struct {
	source  domrepo.NewsSource
	policy  retry.Policy
	dir     Direction
	metrics domrepo.Metrics
	log     *logger.Logger

	// Now is the walk's clock; tests override it.
	Now func() time.Time
}

func NewWindowWalker(source domrepo.NewsSource, policy retry.Policy, dir Direction, m domrepo.Metrics, log *logger.Logger) *WindowWalker {
	return &WindowWalker{
		source:  source,
		policy:  policy,
		dir:     dir,
		metrics: m,
		log:     log,
		Now:     time.Now,
	}
}

// Walk fetches pages until the window is covered, de-duplicating by
// title within the walk. A failed call aborts the walk and returns
// whatever accumulated so far together with the abort reason; callers
// treat that as best effort, possibly incomplete. Rate-limit signals
// are retried per the policy before the walk gives up.
func (w *WindowWalker) Walk(ctx context.Context, query, lang string, from time.Time) ([]models.RawArticle, error) {
	pageSize := w.source.MaxPageSize()
	fixedEnd := w.Now()

	// The moving boundary starts at the far edge of the window.
	moving := fixedEnd
	if w.dir == OldestFirst {
		moving = from
	}

	seen := make(map[string]struct{})
	var collected []models.RawArticle

	for page := 0; page < maxWalkPages; page++ {
		var batch []models.RawArticle
		err := w.policy.Do(ctx, func() error {
			lo, hi := from, moving
			if w.dir == OldestFirst {
				lo, hi = moving, fixedEnd
			}
			b, ferr := w.source.FetchPage(ctx, query, lang, lo, hi, pageSize)
			if ferr != nil {
				if errors.Is(ferr, domrepo.ErrRateLimited) {
					return ferr
				}
				return retry.Permanent(ferr)
			}
			batch = b
			return nil
		})
		if err != nil {
			w.metrics.RecordError("walk_abort")
			w.log.Warn("pagination walk aborted",
				logger.String("provider", w.source.Name()),
				logger.String("query", query),
				logger.Int("collected", len(collected)),
				logger.Error(err))
			return collected, err
		}

		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			if a.Title == "" {
				continue
			}
			if _, dup := seen[a.Title]; dup {
				continue
			}
			seen[a.Title] = struct{}{}
			collected = append(collected, a)
		}
		if len(batch) < pageSize {
			break
		}

		// The last item of the page is the window edge in either
		// direction. A boundary that does not advance would loop
		// forever against a provider that echoes the same page.
		next, ok := parseWalkTime(batch[len(batch)-1].PublishedAt)
		if !ok || next.Equal(moving) {
			break
		}
		moving = next
	}

	return collected, nil
}

func parseWalkTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// TokenPage is one page of a token-paginated provider response.
type TokenPage[T any] struct {
	Items []T
	Next  string
}

// WalkTokens is the pagination variant for providers that offer real
// page tokens, with the same termination guarantees: empty-page stop,
// short-page stop, and a no-progress guard on the token itself.
func WalkTokens[T any](ctx context.Context, pageSize int, fetch func(ctx context.Context, token string) (TokenPage[T], error)) ([]T, error) {
	var out []T
	token := ""
	for page := 0; page < maxWalkPages; page++ {
		p, err := fetch(ctx, token)
		if err != nil {
			return out, err
		}
		out = append(out, p.Items...)
		if len(p.Items) == 0 {
			break
		}
		if pageSize > 0 && len(p.Items) < pageSize {
			break
		}
		if p.Next == "" || p.Next == token {
			break
		}
		token = p.Next
	}
	return out, nil
}
