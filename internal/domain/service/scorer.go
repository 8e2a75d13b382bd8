package service

import "context"

// Scorer rates a news item's relevance and sentiment for a topic.
// The verdict is a signed score token ("+9", "-2"), "not relevant", or
// a failure sentinel. The storage and reconciliation core never depends
// on its output.
type Scorer interface {
	Score(ctx context.Context, title, description, topic string) (string, error)
}
