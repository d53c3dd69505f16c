// Package queue holds pending screen requests in arrival order.
//
// Requests are never coalesced: asking for the same screen twice queues it
// twice. The queue is bounded so a runaway producer cannot grow memory
// without limit.
package queue

import (
	"context"
	"sync"

	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Queue provides non-blocking enqueue and blocking, ordered dequeue.
type Queue interface {
	// Enqueue appends a request. It fails with ErrQueueFull or
	// ErrQueueClosed and never blocks.
	Enqueue(ctx context.Context, s screen.Screen) error

	// Next blocks until a request is available and returns it. ok is false
	// when the queue is closed and drained or ctx is done.
	Next(ctx context.Context) (s screen.Screen, ok bool)

	// Len returns the current number of queued requests.
	Len(ctx context.Context) int

	// Capacity returns the maximum number of queued requests.
	Capacity() int

	// Close stops accepting requests. Queued requests can still be read.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan screen.Screen
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.requests = make(chan screen.Screen, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue appends a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s screen.Screen) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrQueueClosed
	}

	select {
	case q.requests <- s:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.requests))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrQueueFull
	}
}

// Next removes and returns the oldest request.
func (q *InMemoryQueue) Next(ctx context.Context) (screen.Screen, bool) {
	select {
	case s, ok := <-q.requests:
		if !ok {
			return "", false
		}
		metrics.RecordQueueDequeue()
		metrics.UpdateQueueSize(len(q.requests))
		return s, true
	case <-ctx.Done():
		return "", false
	}
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.requests)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
