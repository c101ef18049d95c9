package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/queue"
)

// Handler processes one inbound payload to completion.
type Handler interface {
	Handle(ctx context.Context, payload []byte) *domain.Job
}

// Worker is a single goroutine that pulls messages off the queue and hands
// each one to the download handler.
type Worker struct {
	id      int
	q       *queue.Queue
	handler Handler
	logger  *zap.Logger
}

func NewWorker(id int, q *queue.Queue, h Handler, logger *zap.Logger) *Worker {
	return &Worker{id: id, q: q, handler: h, logger: logger}
}

// Run blocks until the queue is closed and drained, or ctx is cancelled and
// nothing is left to dequeue.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping")
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	if !item.ReceivedAt.IsZero() {
		w.logger.Debug("message dequeued",
			zap.String("topic", item.Topic),
			zap.Uint16("message_id", item.MessageID),
			zap.Duration("queue_wait", time.Since(item.ReceivedAt)),
		)
	}
	job := w.handler.Handle(ctx, item.Payload)
	if job != nil {
		w.logger.Debug("message processed",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
		)
	}
}
