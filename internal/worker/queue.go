// Package worker runs side-effect jobs on a single background goroutine so
// that callers on latency-sensitive paths never wait for slow backends.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is used when New is given a non-positive size.
const DefaultBuffer = 256

// Job is a unit of work. A returned error is handed to the queue's error
// handler.
type Job func() error

// Queue executes jobs in submission order. Submit never blocks: when the
// buffer is full the job is dropped and counted.
type Queue struct {
	jobs    chan Job
	onErr   func(error)
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// New starts a queue. onErr may be nil.
func New(buffer int, onErr func(error)) *Queue {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	q := &Queue{jobs: make(chan Job, buffer), onErr: onErr, done: make(chan struct{})}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for job := range q.jobs {
		if err := job(); err != nil && q.onErr != nil {
			q.onErr(err)
		}
	}
}

// Submit enqueues job and reports whether it was accepted.
func (q *Queue) Submit(job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Flush waits until every job submitted before the call has run.
func (q *Queue) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return nil
	}
	select {
	case q.jobs <- func() error { close(barrier); return nil }:
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}
	q.mu.RUnlock()
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many jobs were rejected because the buffer was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Close stops accepting jobs and waits for the pending ones to run.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
}
