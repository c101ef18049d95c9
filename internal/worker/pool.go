package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/queue"
)

// Pool manages the lifecycle of all workers.
// All workers share the same queue. With a single worker jobs run strictly
// in arrival order; more workers trade that ordering for throughput.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates size identical workers feeding h from q.
func NewPool(size int, q *queue.Queue, h Handler, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = NewWorker(i, q, h, logger.With(zap.Int("worker_id", i)))
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// Workers return once the queue is closed and drained. Cancelling ctx makes
// in-flight and still-queued jobs fail fast instead of running to completion.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// WaitTimeout is Wait bounded by ctx. It reports whether all workers
// returned before ctx was done.
func (p *Pool) WaitTimeout(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}
