package normalize

import (
	"time"

	"FinCache/internal/domain/models"
)

// Articles coerces raw provider articles into canonical records for the
// query. Rows missing a title or a parseable publication timestamp are
// dropped. The nested source object collapses to its plain name.
func Articles(query string, raw []models.RawArticle) []models.Article {
	out := make([]models.Article, 0, len(raw))
	for _, r := range raw {
		if r.Title == "" {
			continue
		}
		ts, ok := parseArticleTime(r.PublishedAt)
		if !ok {
			continue
		}
		out = append(out, models.Article{
			Query:       query,
			Title:       r.Title,
			PublishedAt: ts,
			Description: r.Description,
			Content:     r.Content,
			Source:      r.Source.Name,
			Author:      r.Author,
			URL:         r.URL,
		})
	}
	return out
}

func parseArticleTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
