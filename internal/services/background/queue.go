// Package background runs fire-and-forget work on a bounded pool of workers.
package background

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Shutdown when called twice.
var ErrClosed = errors.New("background queue closed")

type job struct {
	name string
	fn   func(ctx context.Context) error
}

// Stats counts what the queue has done since it started.
type Stats struct {
	Submitted int64
	Dropped   int64
	Failed    int64
	Panicked  int64
}

// Queue is a bounded channel drained by a fixed number of workers.
// Submit never blocks; when the buffer is full the task is dropped.
type Queue struct {
	tasks   chan job
	timeout time.Duration
	log     logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	submitted atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

// NewQueue starts workers goroutines. Each task runs with a context detached
// from the caller, bounded by timeout.
func NewQueue(workers, size int, timeout time.Duration, log logrus.FieldLogger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	q := &Queue{
		tasks:   make(chan job, size),
		timeout: timeout,
		log:     log.WithField("component", "background"),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues fn. It reports false if the task was dropped.
func (q *Queue) Submit(name string, fn func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		q.log.WithField("task", name).Warn("queue closed, task dropped")
		return false
	}

	select {
	case q.tasks <- job{name: name, fn: fn}:
		q.submitted.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.log.WithField("task", name).Warn("queue full, task dropped")
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain background queue: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Submitted: q.submitted.Load(),
		Dropped:   q.dropped.Load(),
		Failed:    q.failed.Load(),
		Panicked:  q.panicked.Load(),
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.tasks {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			q.panicked.Add(1)
			q.log.WithFields(logrus.Fields{
				"task":  j.name,
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("background task panicked")
		}
	}()

	if err := j.fn(ctx); err != nil {
		q.failed.Add(1)
		q.log.WithFields(logrus.Fields{
			"task":  j.name,
			"error": err,
		}).Warn("background task failed")
	}
}
