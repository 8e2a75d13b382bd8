// Package normalize converts raw provider rows into canonical records.
// Rows that fail required-field or positivity invariants are dropped,
// never stored and never an error for the batch.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"FinCache/internal/domain/models"
)

// dateLayouts accepted for raw bar dates.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Bars coerces raw provider rows into canonical bars for the identity.
// Invalid rows (unparseable date, close <= 0, non-finite or negative
// numbers) are skipped. Output is sorted by date ascending and
// de-duplicated by date, last occurrence winning.
func Bars(ticker, source string, raw []models.RawBar) []models.PriceBar {
	byDate := make(map[time.Time]models.PriceBar, len(raw))
	for _, r := range raw {
		d, ok := parseBarDate(r.Date)
		if !ok {
			continue
		}
		b := models.PriceBar{Ticker: ticker, Source: source, Date: d}
		if !coerce(r.Open, &b.Open) ||
			!coerce(r.High, &b.High) ||
			!coerce(r.Low, &b.Low) ||
			!coerce(r.Close, &b.Close) ||
			!coerce(r.Volume, &b.Volume) {
			continue
		}
		if b.Close <= 0 {
			continue
		}
		if !coerce(r.AdjClose, &b.AdjClose) || b.AdjClose == 0 {
			b.AdjClose = b.Close
		}
		byDate[d] = b
	}

	out := make([]models.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func parseBarDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// coerce parses a json.Number into dst, rejecting missing, non-finite
// and negative values.
func coerce(n json.Number, dst *float64) bool {
	v, err := n.Float64()
	if err != nil {
		return false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return false
	}
	*dst = v
	return true
}
