package models

import "time"

// IngestEvent is emitted after a merge writes rows, for downstream
// consumers (alerting, analytics backfill).
type IngestEvent struct {
	Kind     string    `json:"kind"` // "prices" or "articles"
	Identity string    `json:"identity"`
	Source   string    `json:"source,omitempty"`
	Rows     int       `json:"rows"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	At       time.Time `json:"at"`
}
