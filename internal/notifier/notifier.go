package notifier

import (
	"context"
	"time"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// Notifier delivers job notifications to the outbound topic.
// A nil error is the broker's acknowledgement; anything else means the
// notification may not have been delivered.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Publisher is the bus primitive the notifier sends through.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// BusNotifier publishes notifications on the shared broker connection.
// The timeout bounds how long a single publish may wait for its ack.
type BusNotifier struct {
	pub     Publisher
	timeout time.Duration
}

func NewBusNotifier(pub Publisher, timeout time.Duration) *BusNotifier {
	return &BusNotifier{pub: pub, timeout: timeout}
}

// Notify sends n.Payload to n.Topic. No buffering and no retry.
func (b *BusNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.pub.Publish(ctx, n.Topic, n.Payload)
}

// compile-time check that BusNotifier implements Notifier
var _ Notifier = (*BusNotifier)(nil)
