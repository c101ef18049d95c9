// Package subscriber wires the inbound broker topic to the job queue.
package subscriber

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/bus"
	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/queue"
)

// Bus is the subset of the broker client the loop needs.
type Bus interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, h bus.MessageHandler) error
	Unsubscribe(topic string) error
}

// Enqueuer accepts inbound messages without blocking.
type Enqueuer interface {
	Enqueue(item queue.Item) error
}

// Rejecter reports a message that could not be queued.
type Rejecter interface {
	Reject(ctx context.Context, payload []byte, cause error)
}

var (
	_ Bus      = (*bus.Client)(nil)
	_ Enqueuer = (*queue.Queue)(nil)
)

// Loop subscribes to the download request topic and feeds the queue.
type Loop struct {
	bus      Bus
	queue    Enqueuer
	rejecter Rejecter
	logger   *zap.Logger
	topic    string

	// rejectCtx outlives Run's ctx so rejections still publish during shutdown.
	rejectCtx context.Context

	mu      sync.Mutex
	stopped bool
	rejects sync.WaitGroup
}

func New(b Bus, q Enqueuer, r Rejecter, logger *zap.Logger) *Loop {
	return &Loop{
		bus:       b,
		queue:     q,
		rejecter:  r,
		logger:    logger,
		topic:     domain.TopicVideoDownload,
		rejectCtx: context.Background(),
	}
}

// Run connects, subscribes and blocks until ctx is cancelled. It returns an
// error wrapping domain.ErrConnection when the broker cannot be reached, or
// the subscribe error if the broker refuses the subscription. Rejections
// still in flight when it returns are awaited by Wait.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.bus.Connect(ctx); err != nil {
		return err
	}

	if err := l.bus.Subscribe(l.topic, l.onMessage); err != nil {
		return err
	}
	l.logger.Info("subscribed", zap.String("topic", l.topic))

	<-ctx.Done()

	if err := l.bus.Unsubscribe(l.topic); err != nil {
		l.logger.Warn("unsubscribe failed", zap.String("topic", l.topic), zap.Error(err))
	} else {
		l.logger.Info("unsubscribed", zap.String("topic", l.topic))
	}
	return nil
}

// Wait blocks until every pending rejection has been published. paho may
// still deliver messages after Unsubscribe, so call it after the queue is
// closed and drained and before the broker is disconnected. Messages that
// arrive after Wait has started are dropped with a warning.
func (l *Loop) Wait() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.rejects.Wait()
}

// onMessage runs on the broker's delivery goroutine and must not block.
func (l *Loop) onMessage(m bus.Message) {
	item := queue.Item{
		Payload:    m.Payload,
		Topic:      m.Topic,
		MessageID:  m.MessageID,
		ReceivedAt: time.Now(),
	}
	if err := l.queue.Enqueue(item); err != nil {
		l.logger.Warn("message not queued",
			zap.Uint16("message_id", m.MessageID),
			zap.Error(err),
		)
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			l.logger.Warn("message dropped after shutdown", zap.Uint16("message_id", m.MessageID))
			return
		}
		l.rejects.Add(1)
		l.mu.Unlock()
		go func() {
			defer l.rejects.Done()
			l.rejecter.Reject(l.rejectCtx, m.Payload, err)
		}()
		return
	}
	l.logger.Debug("message queued",
		zap.Uint16("message_id", m.MessageID),
		zap.Bool("duplicate", m.Duplicate),
	)
}
