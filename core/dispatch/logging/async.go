package logging

import (
	"context"
	"errors"

	"github.com/kilianp07/motorpanel/core/logger"
	"github.com/kilianp07/motorpanel/internal/worker"
)

// AsyncStore appends records on a background goroutine so that dispatching
// never waits for disk or database writes. Query first waits for the records
// appended before it.
type AsyncStore struct {
	inner CommandStore
	queue *worker.Queue
}

var _ CommandStore = (*AsyncStore)(nil)

// ErrStoreBusy is returned by AsyncStore.Append when the record was not queued.
var ErrStoreBusy = errors.New("command log busy")

// NewAsyncStore wraps inner. buffer <= 0 selects worker.DefaultBuffer.
func NewAsyncStore(inner CommandStore, buffer int, log logger.Logger) *AsyncStore {
	return &AsyncStore{
		inner: inner,
		queue: worker.New(buffer, func(err error) { log.Errorf("command log error: %v", err) }),
	}
}

// Append queues rec. It only fails when the buffer is full or the store is
// closed.
func (s *AsyncStore) Append(_ context.Context, rec CommandRecord) error {
	if !s.queue.Submit(func() error { return s.inner.Append(context.Background(), rec) }) {
		return ErrStoreBusy
	}
	return nil
}

func (s *AsyncStore) Query(ctx context.Context, q CommandQuery) ([]CommandRecord, error) {
	if err := s.queue.Flush(ctx); err != nil {
		return nil, err
	}
	return s.inner.Query(ctx, q)
}

// Close writes the pending records and closes the underlying store.
func (s *AsyncStore) Close() error {
	s.queue.Close()
	return s.inner.Close()
}
