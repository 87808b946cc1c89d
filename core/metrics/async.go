package metrics

import (
	"context"

	"github.com/kilianp07/motorpanel/core/logger"
	"github.com/kilianp07/motorpanel/internal/worker"
)

// AsyncSink records events on a background goroutine. Record calls return
// immediately; backend errors are logged and events are dropped when the
// buffer is full.
type AsyncSink struct {
	inner MetricsSink
	queue *worker.Queue
}

var (
	_ ConnectionRecorder = (*AsyncSink)(nil)
	_ FeedbackRecorder   = (*AsyncSink)(nil)
)

// NewAsyncSink wraps inner. buffer <= 0 selects worker.DefaultBuffer.
func NewAsyncSink(inner MetricsSink, buffer int, log logger.Logger) *AsyncSink {
	return &AsyncSink{
		inner: inner,
		queue: worker.New(buffer, func(err error) { log.Errorf("metrics error: %v", err) }),
	}
}

func (a *AsyncSink) RecordCommand(ev CommandEvent) error {
	a.queue.Submit(func() error { return a.inner.RecordCommand(ev) })
	return nil
}

func (a *AsyncSink) RecordConnection(ev ConnectionEvent) error {
	if rec, ok := a.inner.(ConnectionRecorder); ok {
		a.queue.Submit(func() error { return rec.RecordConnection(ev) })
	}
	return nil
}

func (a *AsyncSink) RecordFeedback(ev FeedbackEvent) error {
	if rec, ok := a.inner.(FeedbackRecorder); ok {
		a.queue.Submit(func() error { return rec.RecordFeedback(ev) })
	}
	return nil
}

// Dropped returns the number of events lost to a full buffer.
func (a *AsyncSink) Dropped() uint64 { return a.queue.Dropped() }

// Flush waits for the events recorded so far.
func (a *AsyncSink) Flush(ctx context.Context) error { return a.queue.Flush(ctx) }

// Close drains pending events and stops the worker.
func (a *AsyncSink) Close() { a.queue.Close() }
