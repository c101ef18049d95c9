package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/video-download-worker/internal/ratelimiter"
)

func TestLimiter_UnlimitedNeverBlocks(t *testing.T) {
	l := ratelimiter.New(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 1000; i++ {
		require.NoError(t, l.Wait(ctx))
	}
}

func TestLimiter_CancelledWhileWaiting(t *testing.T) {
	l := ratelimiter.New(1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, l.Wait(ctx), "second token within the same second should not be granted before the deadline")
}
