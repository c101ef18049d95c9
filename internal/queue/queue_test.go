package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/queue"
)

func item(payload string) queue.Item {
	return queue.Item{Payload: []byte(payload), Topic: domain.TopicVideoDownload}
}

func TestQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New(10)
	ctx := context.Background()

	if err := q.Enqueue(item("1")); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected item, got nothing")
	}
	if string(got.Payload) != "1" {
		t.Fatalf("expected payload=1, got %s", got.Payload)
	}
}

// TestQueue_FIFO verifies items come out in arrival order.
func TestQueue_FIFO(t *testing.T) {
	q := queue.New(10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = q.Enqueue(item(fmt.Sprint(i)))
	}
	for i := 0; i < 5; i++ {
		got, _ := q.Dequeue(ctx)
		if string(got.Payload) != fmt.Sprint(i) {
			t.Fatalf("position %d: got %q", i, got.Payload)
		}
	}
}

// TestQueue_ErrQueueFull verifies the non-blocking Enqueue returns
// ErrQueueFull when the buffer is saturated.
func TestQueue_ErrQueueFull(t *testing.T) {
	q := queue.New(2)

	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))

	if err := q.Enqueue(item("c")); err != domain.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Depth() != 2 || q.Capacity() != 2 {
		t.Fatalf("unexpected depth=%d capacity=%d", q.Depth(), q.Capacity())
	}
}

// TestQueue_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestQueue_ContextCancellation(t *testing.T) {
	q := queue.New(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

// TestQueue_PendingItemsBeatCancellation verifies queued items are still
// handed out after the context is cancelled.
func TestQueue_PendingItemsBeatCancellation(t *testing.T) {
	q := queue.New(4)
	_ = q.Enqueue(item("pending"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, ok := q.Dequeue(ctx)
	if !ok || string(got.Payload) != "pending" {
		t.Fatalf("expected pending item, got ok=%v payload=%q", ok, got.Payload)
	}
	if _, ok := q.Dequeue(ctx); ok {
		t.Fatal("expected ok=false once drained")
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := queue.New(4)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	q.Close()
	q.Close() // idempotent

	if err := q.Enqueue(item("c")); err != domain.ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b"} {
		got, ok := q.Dequeue(ctx)
		if !ok || string(got.Payload) != want {
			t.Fatalf("expected %q, got ok=%v payload=%q", want, ok, got.Payload)
		}
	}
	if _, ok := q.Dequeue(ctx); ok {
		t.Fatal("expected ok=false on closed, empty queue")
	}
}

// TestQueue_ConcurrentEnqueueDequeue verifies there are no races
// when multiple goroutines enqueue and dequeue simultaneously.
func TestQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	const producers = 5
	const itemsPerProducer = 100
	const total = producers * itemsPerProducer

	q := queue.New(total)
	received := make(chan struct{}, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumerDone sync.WaitGroup
	consumerDone.Add(1)
	go func() {
		defer consumerDone.Done()
		for {
			_, ok := q.Dequeue(ctx)
			if !ok {
				return
			}
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < itemsPerProducer; j++ {
				_ = q.Enqueue(item("id"))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d items", i, total)
		}
	}
	q.Close()
	consumerDone.Wait()
}
