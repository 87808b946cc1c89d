package logging

import (
	"context"
	"time"
)

// CommandRecord captures one dispatch attempt and its outcome.
type CommandRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent"`
	Value     int       `json:"value"`
	Topic     string    `json:"topic"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}

// CommandQuery defines filters for retrieving records. Zero fields match
// everything.
type CommandQuery struct {
	Start   time.Time
	End     time.Time
	Intent  string
	Outcome string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Match reports whether rec satisfies the filters, ignoring Limit.
func (q CommandQuery) Match(rec CommandRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.Intent != "" && rec.Intent != q.Intent {
		return false
	}
	if q.Outcome != "" && rec.Outcome != q.Outcome {
		return false
	}
	return true
}

func (q CommandQuery) limit(recs []CommandRecord) []CommandRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// CommandStore persists CommandRecords and supports querying.
type CommandStore interface {
	Append(ctx context.Context, rec CommandRecord) error
	Query(ctx context.Context, q CommandQuery) ([]CommandRecord, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, CommandRecord) error { return nil }
func (NopStore) Query(context.Context, CommandQuery) ([]CommandRecord, error) {
	return nil, nil
}
func (NopStore) Close() error { return nil }
