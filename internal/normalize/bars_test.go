package normalize

import (
	"encoding/json"
	"testing"

	"FinCache/internal/domain/models"
)

func rawBar(date, o, h, l, c, adj, v string) models.RawBar {
	return models.RawBar{
		Date:     date,
		Open:     json.Number(o),
		High:     json.Number(h),
		Low:      json.Number(l),
		Close:    json.Number(c),
		AdjClose: json.Number(adj),
		Volume:   json.Number(v),
	}
}

func TestBarsCoercesStringsAndNumbers(t *testing.T) {
	raw := []models.RawBar{
		rawBar("2025-01-02", "101.5", "103", "100", "102.25", "102.25", "1000"),
	}
	bars := Bars("AAPL", "yahoo", raw)
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	b := bars[0]
	if b.Ticker != "AAPL" || b.Source != "yahoo" {
		t.Fatalf("identity not set: %+v", b)
	}
	if b.Close != 102.25 || b.Volume != 1000 {
		t.Fatalf("unexpected values: %+v", b)
	}
	if b.Date.Format("2006-01-02") != "2025-01-02" {
		t.Fatalf("unexpected date %v", b.Date)
	}
}

func TestBarsDropsNonPositiveClose(t *testing.T) {
	raw := []models.RawBar{
		rawBar("2025-01-02", "1", "1", "1", "0", "", "10"),
		rawBar("2025-01-03", "1", "1", "1", "-5", "", "10"),
		rawBar("2025-01-04", "1", "1", "1", "2", "", "10"),
	}
	bars := Bars("AAPL", "yahoo", raw)
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if bars[0].Date.Day() != 4 {
		t.Fatalf("wrong surviving row: %+v", bars[0])
	}
}

func TestBarsDropsBadDateAndBadNumbers(t *testing.T) {
	raw := []models.RawBar{
		rawBar("not-a-date", "1", "1", "1", "2", "", "10"),
		rawBar("2025-01-02", "abc", "1", "1", "2", "", "10"),
		rawBar("2025-01-03", "1", "1", "1", "2", "", ""),
	}
	if bars := Bars("AAPL", "yahoo", raw); len(bars) != 0 {
		t.Fatalf("expected 0 bars, got %d", len(bars))
	}
}

func TestBarsAdjCloseDefaultsToClose(t *testing.T) {
	raw := []models.RawBar{rawBar("2025-01-02", "1", "3", "1", "2", "", "10")}
	bars := Bars("AAPL", "yahoo", raw)
	if len(bars) != 1 || bars[0].AdjClose != 2 {
		t.Fatalf("expected adj close fallback, got %+v", bars)
	}
}

func TestBarsSortsAndDeduplicatesByDate(t *testing.T) {
	raw := []models.RawBar{
		rawBar("2025-01-05", "1", "1", "1", "5", "", "10"),
		rawBar("2025-01-02", "1", "1", "1", "2", "", "10"),
		rawBar("2025-01-05", "1", "1", "1", "6", "", "10"),
	}
	bars := Bars("AAPL", "yahoo", raw)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Fatalf("bars not sorted ascending")
	}
	if bars[1].Close != 6 {
		t.Fatalf("expected last duplicate to win, got close=%v", bars[1].Close)
	}
}

func TestArticlesDropsRowsMissingTitleOrTimestamp(t *testing.T) {
	raw := []models.RawArticle{
		{Title: "", PublishedAt: "2025-01-02T10:00:00Z"},
		{Title: "no timestamp"},
		{Title: "kept", PublishedAt: "2025-01-02T10:00:00Z"},
	}
	arts := Articles("gold", raw)
	if len(arts) != 1 || arts[0].Title != "kept" {
		t.Fatalf("unexpected result: %+v", arts)
	}
	if arts[0].Query != "gold" {
		t.Fatalf("query not set: %+v", arts[0])
	}
}

func TestArticlesFlattensNestedSource(t *testing.T) {
	raw := []models.RawArticle{{Title: "t", PublishedAt: "2025-01-02T10:00:00Z"}}
	raw[0].Source.Name = "Reuters"
	arts := Articles("gold", raw)
	if len(arts) != 1 || arts[0].Source != "Reuters" {
		t.Fatalf("source not flattened: %+v", arts)
	}
}
