package queue

import (
	"context"
	"sync"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// Queue is a bounded FIFO of inbound messages feeding the worker pool.
//
// Enqueue never blocks: it is called from the broker's message callback,
// and stalling that callback would also stall the acknowledgements our own
// publishes are waiting for.
type Queue struct {
	items chan Item
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func New(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		items: make(chan Item, size),
		done:  make(chan struct{}),
	}
}

// Enqueue places an item on the queue.
// It returns ErrQueueFull immediately if the buffer is saturated and
// ErrQueueClosed once Close has been called.
func (q *Queue) Enqueue(item Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return domain.ErrQueueClosed
	}

	select {
	case q.items <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available, the queue is closed and
// drained, or ctx is cancelled.
//
// Pending items win over cancellation: a non-blocking receive runs first so
// that workers keep handing queued messages to the handler during shutdown.
// The handler fails them fast on the cancelled context, which still produces
// the failure notification every message is owed.
func (q *Queue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		return item, true
	default:
	}

	select {
	case item := <-q.items:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	case <-q.done:
		select {
		case item := <-q.items:
			return item, true
		default:
			return Item{}, false
		}
	}
}

// Close stops accepting new items. Items already queued remain dequeueable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Depth returns the number of items waiting.
func (q *Queue) Depth() int {
	return len(q.items)
}

// Capacity returns the configured buffer size.
func (q *Queue) Capacity() int {
	return cap(q.items)
}
